package session

import "errors"

// Session errors.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrExpired is returned when a session has expired.
	ErrExpired = errors.New("session: expired")

	// ErrInvalidID is returned when a session ID is malformed.
	ErrInvalidID = errors.New("session: invalid id")

	// ErrNoSession is returned when the request context carries no session.
	ErrNoSession = errors.New("session: no session in context")

	// ErrNotSupported is returned when the store lacks an optional capability.
	ErrNotSupported = errors.New("session: operation not supported by store")
)
