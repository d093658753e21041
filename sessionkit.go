package sessionkit

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/db"
	"github.com/dmitrymomot/sessionkit/pkg/health"
	"github.com/dmitrymomot/sessionkit/pkg/mongo"
	"github.com/dmitrymomot/sessionkit/pkg/redis"
	"github.com/dmitrymomot/sessionkit/pkg/session"
	"github.com/dmitrymomot/sessionkit/pkg/session/memstore"
	"github.com/dmitrymomot/sessionkit/pkg/session/mongostore"
	"github.com/dmitrymomot/sessionkit/pkg/session/pgstore"
	"github.com/dmitrymomot/sessionkit/pkg/session/redisstore"
)

// probeID is looked up by the store health check. It is never a valid
// session ID, so the lookup always misses.
const probeID = "healthcheck"

// Kit owns the session store built from a descriptor together with the
// manager that serves it.
type Kit struct {
	cfg     config.Config
	store   session.Store
	manager *session.Manager
	logger  *slog.Logger
	checks  health.Checks
	closers []func(context.Context) error
	sweeper *sweeper

	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// New validates cfg, opens the store for the selected adapter and builds
// the session manager. Any validation or connection error aborts with no
// resources left open.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Kit, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if adapter, err := config.ParseAdapter(string(cfg.Adapter)); err == nil {
		cfg.Adapter = adapter
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	k := &Kit{
		cfg:    cfg,
		logger: o.logger,
		checks: health.Checks{},
	}

	store := o.store
	if store == nil {
		var err error
		store, err = k.openStore(ctx, o)
		if err != nil {
			_ = k.Close(context.WithoutCancel(ctx))
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
	}
	k.store = store
	k.checks["session_store"] = storeCheck(store)

	k.manager = session.NewManager(store, cfg,
		session.WithLogger(o.logger),
		session.WithClock(o.now),
	)

	if cleaner, ok := store.(session.Cleaner); ok && !o.noCleanup && cfg.CleanupSchedule != "" {
		sw, err := newSweeper(cleaner, cfg.CleanupSchedule, o.logger)
		if err != nil {
			_ = k.Close(context.WithoutCancel(ctx))
			return nil, errors.Join(ErrInvalidSchedule, err)
		}
		k.sweeper = sw
	}

	o.logger.InfoContext(ctx, "session store ready", slog.Any("session", cfg))

	return k, nil
}

// openStore connects to the adapter selected by the descriptor and
// registers its health check and shutdown hook.
func (k *Kit) openStore(ctx context.Context, o *options) (session.Store, error) {
	cfg := k.cfg

	switch cfg.Adapter {
	case config.AdapterRedis:
		client, err := redis.OpenConfig(ctx, cfg.Redis, redis.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		k.checks["redis"] = redis.Healthcheck(client)
		k.closers = append(k.closers, redis.Shutdown(client))

		return redisstore.New(client,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithClock(o.now),
		), nil

	case config.AdapterMongo:
		coll, err := mongo.Collection(ctx, cfg.Mongo, mongo.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		client := coll.Database().Client()
		k.checks["mongo"] = mongo.Healthcheck(client)
		k.closers = append(k.closers, mongo.Shutdown(client))

		store := mongostore.New(coll,
			mongostore.WithStringify(cfg.Mongo.Stringify),
			mongostore.WithClock(o.now),
		)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case config.AdapterPostgres:
		pool, err := db.Connect(ctx, cfg.Postgres, db.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		k.checks["postgres"] = db.Healthcheck(pool)
		k.closers = append(k.closers, db.Shutdown(pool))

		if err := db.Migrate(ctx, pool, pgstore.Migrations(), cfg.Postgres.MigrationsTable, o.logger); err != nil {
			return nil, err
		}
		return pgstore.New(pool, pgstore.WithClock(o.now)), nil

	default:
		store := memstore.New(
			memstore.WithCleanupInterval(cfg.Memory.CleanupInterval),
			memstore.WithMaxEntries(cfg.Memory.MaxEntries),
			memstore.WithClock(o.now),
		)
		k.closers = append(k.closers, func(context.Context) error {
			return store.Close()
		})
		return store, nil
	}
}

// Config returns the validated descriptor the kit was built from.
func (k *Kit) Config() config.Config {
	return k.cfg
}

// Manager returns the session manager.
func (k *Kit) Manager() *session.Manager {
	return k.manager
}

// Store returns the session store.
func (k *Kit) Store() session.Store {
	return k.store
}

// Middleware loads and commits the session around next.
func (k *Kit) Middleware(next http.Handler) http.Handler {
	return k.manager.Middleware(next)
}

// Checks returns the readiness checks for the store and its connection.
func (k *Kit) Checks() health.Checks {
	return maps.Clone(k.checks)
}

// Start launches the expired-session sweeper if one is scheduled.
// Calling Start more than once has no effect.
func (k *Kit) Start(ctx context.Context) error {
	k.startOnce.Do(func() {
		if k.sweeper != nil {
			k.sweeper.start()
			k.logger.InfoContext(ctx, "session sweeper started",
				slog.String("schedule", k.cfg.CleanupSchedule),
			)
		}
	})
	return nil
}

// Close stops the sweeper and releases every connection the kit opened.
// It is safe to call more than once; later calls return the first result.
func (k *Kit) Close(ctx context.Context) error {
	k.closeOnce.Do(func() {
		var errs []error
		if k.sweeper != nil {
			if err := k.sweeper.stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, closeFn := range k.closers {
			g.Go(func() error {
				return closeFn(gctx)
			})
		}
		if err := g.Wait(); err != nil {
			errs = append(errs, err)
			k.logger.ErrorContext(ctx, "session store shutdown failed", slog.String("error", err.Error()))
		}

		k.closeErr = errors.Join(errs...)
	})
	return k.closeErr
}

// storeCheck reports whether the store answers lookups.
func storeCheck(store session.Store) health.CheckFunc {
	return func(ctx context.Context) error {
		_, err := store.Get(ctx, probeID)
		if err == nil || errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return nil
		}
		return err
	}
}
