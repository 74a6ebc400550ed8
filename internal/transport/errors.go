package transport

import "errors"

var (
	// ErrInvalidArgument indicates a malformed root, path, locator or mode.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound indicates a missing bucket, object or transport scheme.
	ErrNotFound = errors.New("not found")
	// ErrIO indicates a failed transfer or local staging failure.
	ErrIO = errors.New("i/o error")
	// ErrInvalidState indicates a call that the transport's current state does not allow.
	ErrInvalidState = errors.New("invalid state")
)
