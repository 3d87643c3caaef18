package models

import (
	"strings"
	"time"
)

// ReasonNotSelected marks an employee whose selection was started but who still
// needs a reason. It never counts as an allocated seat.
const ReasonNotSelected = "NOT_SELECTED"

// Modifier identifies who last changed an employee's allocation
type Modifier struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Employee is one roster row. Optional fields are pointers: nil means the value
// was absent from the source, a pointer to "" means it was present but empty.
type Employee struct {
	ID             string  `json:"id" db:"id"`
	Name           string  `json:"name" db:"name"`
	Email          string  `json:"email" db:"email"`
	Designation    *string `json:"designation,omitempty" db:"designation"`
	Manager        *string `json:"manager,omitempty" db:"manager"`
	Department     *string `json:"department,omitempty" db:"department"`
	LineOfBusiness *string `json:"lineOfBusiness,omitempty" db:"line_of_business"`
	Location       *string `json:"location,omitempty" db:"location"`
	City           *string `json:"city,omitempty" db:"city"`

	// Allocation provenance
	Modifier   *Modifier `json:"modifier,omitempty"`
	Reason     *string   `json:"reason,omitempty" db:"reason"`
	ModifiedAt *string   `json:"modifiedAt,omitempty" db:"modified_at"`

	// IT access requests
	InternetAccess          *bool   `json:"internetAccess,omitempty" db:"internet_access"`
	RequestedSitesToUnblock *string `json:"requestedSitesToUnblock,omitempty" db:"requested_sites_to_unblock"`
	ExternalEmailSending    *bool   `json:"externalEmailSending,omitempty" db:"external_email_sending"`
	ExternalEmailRecipients *string `json:"externalEmailRecipients,omitempty" db:"external_email_recipients"`
	WorkEmailMobile         *bool   `json:"workEmailMobile,omitempty" db:"work_email_mobile"`
	VPNAccess               *bool   `json:"vpnAccess,omitempty" db:"vpn_access"`
	VPNType                 *string `json:"vpnType,omitempty" db:"vpn_type"`
}

// LOB returns the employee's line of business or "" when unset
func (e *Employee) LOB() string {
	return Str(e.LineOfBusiness)
}

// IsSelected reports whether the employee currently holds a seat
func (e *Employee) IsSelected() bool {
	r := Str(e.Reason)
	return r != "" && r != ReasonNotSelected
}

// ModifierName returns the modifier's name or "" when there is none
func (e *Employee) ModifierName() string {
	if e.Modifier == nil {
		return ""
	}
	return e.Modifier.Name
}

// ModifierEmail returns the modifier's email or "" when there is none
func (e *Employee) ModifierEmail() string {
	if e.Modifier == nil {
		return ""
	}
	return e.Modifier.Email
}

// SelectionEdit is a pending change to one employee's allocation
type SelectionEdit struct {
	EmployeeID    string    `json:"employee_id"`
	EmployeeName  string    `json:"employee_name"`
	EmployeeEmail string    `json:"employee_email"`
	LOB           string    `json:"lob"`
	Reason        *string   `json:"reason"` // nil deselects
	Modifier      Modifier  `json:"modifier"`
	ModifiedAt    time.Time `json:"modified_at"`
}

// SelectionRequest is the body of PUT /v1/employees/:id/selection
type SelectionRequest struct {
	Reason *string `json:"reason"`
}

// TimestampLayout is the UTC millisecond form stored in modifiedAt
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Str dereferences an optional string
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// NormalizeEmail lower-cases and trims an email for comparisons
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
