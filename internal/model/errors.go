package model

import "errors"

// Error kinds returned across the lending engine. Callers match them with errors.Is;
// the concrete error usually wraps one of these with context.
var (
	// ErrValidation reports malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports an unknown id reference.
	ErrNotFound = errors.New("not found")
	// ErrForbidden reports a failed role or ownership check.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition reports a state change not reachable from the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflict reports that state changed between read and write. Re-read and decide again.
	ErrConflict = errors.New("conflict")
)
