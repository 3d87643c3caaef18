package models

// Role names carried by an Actor
const (
	RoleAdmin     = "admin"
	RoleGroupHead = "groupHead"
	RoleDelegate  = "delegate"
)

// Actor is the authenticated user performing an operation
type Actor struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
	// LOBs the actor heads or is a delegate for
	LOBs []string `json:"lobs,omitempty"`
}

// HasRole reports whether the actor carries role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor is an administrator
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// CanManage reports whether the actor may change selections in lob
func (a Actor) CanManage(lob string) bool {
	if a.IsAdmin() {
		return true
	}
	for _, l := range a.LOBs {
		if l == lob {
			return true
		}
	}
	return false
}

// Modifier returns the actor as an allocation modifier
func (a Actor) Modifier() Modifier {
	return Modifier{Name: a.Name, Email: a.Email}
}

// LOBRoles holds the group head and delegates of one line of business.
// Both are referenced by employee id.
type LOBRoles struct {
	LOB       string   `json:"lob"`
	GroupHead string   `json:"groupHead,omitempty"`
	Delegates []string `json:"delegates"`
}

// RolesResponse is returned by GET /v1/roles/me
type RolesResponse struct {
	Actor      Actor      `json:"actor"`
	Assignment []LOBRoles `json:"assignments,omitempty"`
}

// AdminsRequest replaces the admin allowlist
type AdminsRequest struct {
	Emails []string `json:"emails" binding:"required"`
}

// LockRequest is the body of PUT /v1/locks/:lob
type LockRequest struct {
	Locked bool `json:"locked"`
}
