package mongo

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/dmitrymomot/sessionkit/pkg/config"
)

// Option configures Connect.
type Option func(*connectOptions)

type connectOptions struct {
	logger *slog.Logger
}

// WithLogger reports failed connection attempts.
func WithLogger(l *slog.Logger) Option {
	return func(o *connectOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Connect creates a MongoDB client from the descriptor's mongo section and
// pings the primary, retrying with a linearly growing wait. TLS is enabled
// when the descriptor asks for it even if the URL does not.
func Connect(ctx context.Context, cfg config.Mongo, opts ...Option) (*mongo.Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyConnectionURL
	}

	o := &connectOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}

	clientOpts := clientOptions(cfg)

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client, err := connect(ctx, clientOpts, cfg.ConnectTimeout)
		if err == nil {
			return client, nil
		}
		lastErr = err

		o.logger.WarnContext(ctx, "mongo connection attempt failed",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()),
		)

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

// Collection connects and returns the session collection named by the
// descriptor.
func Collection(ctx context.Context, cfg config.Mongo, opts ...Option) (*mongo.Collection, error) {
	client, err := Connect(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return client.Database(cfg.DatabaseName()).Collection(cfg.Collection), nil
}

func clientOptions(cfg config.Mongo) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetRetryWrites(true).
		SetRetryReads(true)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

func connect(ctx context.Context, opts *options.ClientOptions, timeout time.Duration) (*mongo.Client, error) {
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}

	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}

	return client, nil
}
