package schedule

import "errors"

// Sentinel errors for schedule operations.
var (
	// ErrEventNotFound is returned when the requested event id is unknown.
	// An unknown id is an expected outcome (mistyped link, event from a
	// previous process instance), not a bug path.
	ErrEventNotFound = errors.New("event not found")
)
