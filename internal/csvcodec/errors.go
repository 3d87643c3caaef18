package csvcodec

import (
	"fmt"
	"strings"
)

// EmptyHeaderError is returned when the input has no header line
type EmptyHeaderError struct{}

func (e *EmptyHeaderError) Error() string {
	return "CSV file is empty or has no header."
}

// MissingColumnsError lists required columns absent from the header line,
// in the order they were required.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("Invalid CSV header. Missing columns: %s.", strings.Join(e.Missing, ", "))
}

// RowError rejects one data row. Row is 1-based with the header line excluded
// from data but counted in numbering, so the first data row is row 2.
type RowError struct {
	Row     int
	Field   string
	Message string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("Error parsing row %d: %s", e.Row, e.Message)
}

// NewMissingFieldError reports an empty required field on row
func NewMissingFieldError(row int, field string) *RowError {
	return &RowError{
		Row:     row,
		Field:   field,
		Message: fmt.Sprintf("Row %d is missing the required '%s' field.", row, field),
	}
}
