package health

import "errors"

var (
	// ErrCheckFailed is the root of the error returned by Run.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout marks checks that ran out of time.
	ErrCheckTimeout = errors.New("health: check timeout")
)
