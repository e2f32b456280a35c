// Package common contains shared constants and sentinel errors used across
// KnowBrain client components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// ErrUnauthenticated means the server rejected the request because no
	// valid credential was attached. The request gateway reacts to it by
	// driving a session renewal and retrying once.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSessionExpired means the session renewal itself failed. It forces
	// a logout and is never retried automatically.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound means the requested entity does not exist on the server.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the server rejected a write. Local state is left
	// unchanged and the server message is surfaced to the caller.
	ErrValidation = errors.New("validation error")

	// ErrUnavailable means the server could not be reached or answered with
	// an internal error.
	ErrUnavailable = errors.New("server unavailable")
)
