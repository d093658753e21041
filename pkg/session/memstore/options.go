package memstore

import "time"

// Option configures the memory store.
type Option func(*options)

type options struct {
	now             func() time.Time
	cleanupInterval time.Duration
	maxEntries      int
}

func defaultOptions() *options {
	return &options{
		now:             time.Now,
		cleanupInterval: time.Minute,
		maxEntries:      0, // 0 = unlimited
	}
}

// WithCleanupInterval sets how often expired sessions are removed
// by the background janitor goroutine. Zero disables the janitor.
// Default: 1 minute.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = d
	}
}

// WithMaxEntries caps the number of stored sessions. When the limit is
// reached, the least recently used session is evicted.
// Default: 0 (unlimited).
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
