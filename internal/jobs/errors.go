package jobs

import "errors"

// Sentinel errors for job registry operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested job does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrConflict indicates an illegal state transition, such as mutating
	// a terminal job or lowering its progress. The record is left unchanged.
	ErrConflict = errors.New("job state conflict")

	// ErrInvalidType indicates an unknown job type was supplied at creation.
	ErrInvalidType = errors.New("invalid job type")
)
