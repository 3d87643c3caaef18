package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor lacks the role for an operation
	ErrForbidden = errors.New("forbidden")
	// ErrLocked is returned when an edit targets a locked line of business
	ErrLocked = errors.New("line of business is locked")
	// ErrInvalidInput is returned for malformed request values
	ErrInvalidInput = errors.New("invalid input")
	// ErrNothingToExport is returned when a report would have no rows
	ErrNothingToExport = errors.New("nothing to export")
)

// BatchPersistenceError reports a failed upsert batch. Batches before it stay
// committed.
type BatchPersistenceError struct {
	Batch     int // 1-based
	Committed int
	Total     int
	Err       error
}

func (e *BatchPersistenceError) Error() string {
	return fmt.Sprintf("import stopped at batch %d: %d of %d records were saved: %v",
		e.Batch, e.Committed, e.Total, e.Err)
}

func (e *BatchPersistenceError) Unwrap() error {
	return e.Err
}
