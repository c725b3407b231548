package snapshot

import "errors"

var (
	// ErrNotFound indicates a missing data source, version, or payload.
	ErrNotFound = errors.New("snapshot not found")

	// ErrConflict indicates a concurrent write to the same data source.
	// Snapshot writes are single-writer-per-source.
	ErrConflict = errors.New("concurrent snapshot write for data source")
)
