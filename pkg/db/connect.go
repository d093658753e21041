package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sessionkit/pkg/config"
)

// Pool tuning that the descriptor does not expose.
const (
	healthCheckPeriod = time.Minute
	maxConnIdleTime   = 10 * time.Minute
	maxConnLifetime   = 30 * time.Minute
)

// Option configures Connect.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger reports failed connection attempts.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Connect establishes a PostgreSQL connection pool for the SQL session
// store, retrying with a linearly growing wait until the server answers a
// ping or the attempts run out.
func Connect(ctx context.Context, cfg config.Postgres, opts ...Option) (*pgxpool.Pool, error) {
	o := &options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}

	connConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	connConfig.MaxConns = cfg.MaxConns
	connConfig.MinConns = cfg.MinConns
	connConfig.HealthCheckPeriod = healthCheckPeriod
	connConfig.MaxConnIdleTime = maxConnIdleTime
	connConfig.MaxConnLifetime = maxConnLifetime

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			// Authentication and permission problems only surface on a real round trip.
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		o.logger.WarnContext(ctx, "postgres connection attempt failed",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()),
		)

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrFailedToOpenDBConnection, lastErr)
}
