package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks malformed input that is rejected before any work starts.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnavailable marks a collaborator (vector backend, store) that could not serve the call.
	ErrUnavailable = errors.New("subsystem unavailable")
)
