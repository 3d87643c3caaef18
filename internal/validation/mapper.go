package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail checks the address shape used for actors and admins
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// MapRow converts one parsed row into an employee.
//
// values is padded with "" or truncated to width; truncation returns a warning.
// A column absent from hm leaves its field nil, a present but empty column
// yields a pointer to "". email and then id must be non-empty. In restore mode
// the modifier is set only when both its name and email are non-empty, and
// reason and modifiedAt only when non-empty.
func MapRow(values []string, rowIndex int, hm HeaderMap, width int, mode models.JobType) (*models.Employee, []string, error) {
	row := rowIndex + 2

	var warnings []string
	if len(values) > width {
		warnings = append(warnings, fmt.Sprintf("Row %d has more columns than headers. Truncating extra values.", row))
	}
	padded := make([]string, width)
	copy(padded, values)
	values = padded

	get := func(name string) *string {
		idx, ok := hm[name]
		if !ok || idx >= len(values) {
			return nil
		}
		v := values[idx]
		return &v
	}
	nonEmpty := func(name string) string {
		return strings.TrimSpace(models.Str(get(name)))
	}
	boolField := func(name string) *bool {
		if v := get(name); v != nil {
			return csvcodec.ParseBool(*v)
		}
		return nil
	}

	email := nonEmpty("email")
	if email == "" {
		return nil, warnings, csvcodec.NewMissingFieldError(row, "email")
	}
	id := nonEmpty("id")
	if id == "" {
		return nil, warnings, csvcodec.NewMissingFieldError(row, "id")
	}

	emp := &models.Employee{
		ID:             id,
		Name:           models.Str(get("name")),
		Email:          email,
		Designation:    get("designation"),
		Manager:        get("manager"),
		Department:     get("department"),
		LineOfBusiness: get("lineOfBusiness"),
		Location:       get("location"),
		City:           get("city"),

		InternetAccess:          boolField("internetAccess"),
		RequestedSitesToUnblock: get("requestedSitesToUnblock"),
		ExternalEmailSending:    boolField("externalEmailSending"),
		ExternalEmailRecipients: get("externalEmailRecipients"),
		WorkEmailMobile:         boolField("workEmailMobile"),
		VPNAccess:               boolField("vpnAccess"),
		VPNType:                 get("vpnType"),
	}

	if mode == models.JobTypeRestore {
		name, mail := nonEmpty("modifierName"), nonEmpty("modifierEmail")
		if name != "" && mail != "" {
			emp.Modifier = &models.Modifier{Name: name, Email: mail}
		}
		if reason := nonEmpty("reason"); reason != "" {
			emp.Reason = &reason
		}
		if modifiedAt := nonEmpty("modifiedAt"); modifiedAt != "" {
			emp.ModifiedAt = &modifiedAt
		}
	}

	return emp, warnings, nil
}

// MapResult is the output of mapping a whole table
type MapResult struct {
	Employees []*models.Employee
	Warnings  []string
	// Skipped holds rows rejected by MapValidRows
	Skipped []*csvcodec.RowError
}

// MapRows validates the header line for mode and maps every row. The first
// rejected row aborts the whole file.
func MapRows(table *csvcodec.Table, mode models.JobType) (*MapResult, error) {
	hm, err := ValidateHeaders(table.Headers, RequiredHeaders(mode))
	if err != nil {
		return nil, err
	}

	result := &MapResult{Employees: make([]*models.Employee, 0, len(table.Rows))}
	for i, values := range table.Rows {
		emp, warnings, err := MapRow(values, i, hm, len(table.Headers), mode)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			return nil, err
		}
		result.Employees = append(result.Employees, emp)
	}

	return result, nil
}

// MapValidRows is the lenient variant used by bulk loads: rows lacking id or
// email are collected in Skipped instead of aborting.
func MapValidRows(table *csvcodec.Table, mode models.JobType) (*MapResult, error) {
	hm, err := ValidateHeaders(table.Headers, RequiredHeaders(mode))
	if err != nil {
		return nil, err
	}

	result := &MapResult{Employees: make([]*models.Employee, 0, len(table.Rows))}
	for i, values := range table.Rows {
		emp, warnings, err := MapRow(values, i, hm, len(table.Headers), mode)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			var rowErr *csvcodec.RowError
			if !errors.As(err, &rowErr) {
				return nil, err
			}
			result.Skipped = append(result.Skipped, rowErr)
			continue
		}
		result.Employees = append(result.Employees, emp)
	}

	return result, nil
}
