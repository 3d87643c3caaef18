package models

import (
	"time"
)

// JobStatus represents the status of an import job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobType represents how the uploaded roster is applied
type JobType string

const (
	// JobTypeImport upserts the file into the roster by id
	JobTypeImport JobType = "import"
	// JobTypeRestore clears the roster and replaces it with a backup file
	JobTypeRestore JobType = "restore"
)

// ResourceEmployees is the only importable resource
const ResourceEmployees = "employees"

// Job represents an import or restore job
type Job struct {
	ID              string     `json:"job_id" db:"id"`
	Type            JobType    `json:"type" db:"type"`
	Resource        string     `json:"resource" db:"resource"`
	Status          JobStatus  `json:"status" db:"status"`
	IdempotencyKey  string     `json:"idempotency_key,omitempty" db:"idempotency_key"`
	TotalRecords    int        `json:"total_records" db:"total_records"`
	ProcessedCount  int        `json:"processed" db:"processed_count"`
	SuccessfulCount int        `json:"successful" db:"successful_count"`
	FailedCount     int        `json:"failed" db:"failed_count"`
	DurationMs      int64      `json:"duration_ms,omitempty" db:"duration_ms"`
	RowsPerSec      float64    `json:"rows_per_sec,omitempty" db:"rows_per_sec"`
	FilePath        string     `json:"-" db:"file_path"`
	ErrorMessage    string     `json:"error,omitempty" db:"error_message"`
	ActorName       string     `json:"actor_name,omitempty" db:"actor_name"`
	ActorEmail      string     `json:"actor_email,omitempty" db:"actor_email"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Actor returns the user who submitted the job
func (j *Job) Actor() Actor {
	return Actor{Name: j.ActorName, Email: j.ActorEmail, Roles: []string{RoleAdmin}}
}

// ValidationError represents a single validation error
type ValidationError struct {
	Line    int         `json:"line"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// JobResponse is the API response for job status
type JobResponse struct {
	Job
	Errors      []ValidationError `json:"errors,omitempty"`
	ErrorCount  int               `json:"error_count,omitempty"`
	ErrorReport string            `json:"error_report_url,omitempty"`
}

// ImportRequest represents an import job request
type ImportRequest struct {
	Type           JobType `json:"mode" form:"mode"`
	IdempotencyKey string  `json:"-"` // From header
	Actor          Actor   `json:"-"`
}

// ImportSummary reports the outcome of a chunked import
type ImportSummary struct {
	Total     int `json:"total"`
	Imported  int `json:"imported"`
	Batches   int `json:"batches"`
	Truncated int `json:"truncated_rows,omitempty"`
}
