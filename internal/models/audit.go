package models

import "time"

// Audit actions recorded in the change log
const (
	ActionCSVImport      = "CSV Import"
	ActionCSVRestore     = "Restore from Backup"
	ActionSelected       = "Selected Employee"
	ActionDeselected     = "Deselected Employee"
	ActionReasonUpdated  = "Updated Reason"
	ActionLocked         = "Locked Roster"
	ActionUnlocked       = "Unlocked Roster"
	ActionRolesUpdated   = "Updated LOB Roles"
	ActionAdminsUpdated  = "Updated Admins"
	ActionChangelogClear = "Cleared Change Log"
	ActionResetForGoLive = "Reset for Go-Live"
)

// AuditEntry is one change-log record
type AuditEntry struct {
	ID         string    `json:"id" db:"id"`
	Timestamp  time.Time `json:"timestamp" db:"created_at"`
	ActorName  string    `json:"actor_name" db:"actor_name"`
	ActorEmail string    `json:"actor_email" db:"actor_email"`
	Action     string    `json:"action" db:"action"`
	Details    string    `json:"details" db:"details"`
}

// LockState is the lock flag of one line of business
type LockState struct {
	LOB       string     `json:"lob" db:"lob"`
	Locked    bool       `json:"locked" db:"locked"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
