package rollback

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown or soft-deleted rollback point.
	ErrNotFound = errors.New("rollback point not found")

	// ErrExpired indicates a rollback point past its expiry.
	ErrExpired = errors.New("rollback point expired")

	// ErrAlreadyUsed indicates a single-use rollback point that has
	// already been restored from.
	ErrAlreadyUsed = errors.New("rollback point already used")

	// ErrValidation indicates a malformed request, rejected before any
	// persistence.
	ErrValidation = errors.New("validation failed")

	// ErrCorruptPoint indicates corrupted rollback point metadata; the
	// restore aborts entirely.
	ErrCorruptPoint = errors.New("corrupted rollback point metadata")
)

// CaptureError indicates a source lookup failed during rollback point
// creation. The whole create aborts and nothing is persisted.
type CaptureError struct {
	DataSourceID string
	Err          error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed for data source %s: %v", e.DataSourceID, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
