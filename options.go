package sessionkit

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// Option configures a Kit.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	store     session.Store
	now       func() time.Time
	noCleanup bool
}

func defaultOptions() *options {
	return &options{
		logger: logger.NewNope(),
		now:    time.Now,
	}
}

// WithLogger sets the logger passed to the manager, the connections and
// the sweeper. If nil, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStore uses s instead of building the adapter's store.
// The descriptor's adapter options are then ignored and s is not closed
// by Kit.Close.
func WithStore(s session.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithoutCleanup disables the scheduled sweep of expired sessions.
func WithoutCleanup() Option {
	return func(o *options) {
		o.noCleanup = true
	}
}

// WithClock overrides the time source of the manager and the stores.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
