package sessionkit

import "errors"

var (
	// ErrInvalidConfig wraps descriptor validation failures.
	ErrInvalidConfig = errors.New("sessionkit: invalid config")

	// ErrStoreUnavailable is returned when the selected store cannot be
	// opened, reached or prepared.
	ErrStoreUnavailable = errors.New("sessionkit: session store unavailable")

	// ErrInvalidSchedule is returned when the cleanup schedule cannot be
	// registered.
	ErrInvalidSchedule = errors.New("sessionkit: invalid cleanup schedule")
)
