package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// Validate checks the descriptor and returns every problem it finds,
// joined. Options of adapters that are not selected are ignored.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Secret) == "" {
		errs = append(errs, ErrMissingSecret)
	}
	for i, s := range c.PreviousSecrets {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("%w: previous secret #%d is empty", ErrMissingSecret, i))
		}
	}

	if !validCookieName(c.Name) {
		errs = append(errs, fmt.Errorf("%w: cookie name %q", ErrInvalidCookie, c.Name))
	}
	errs = append(errs, c.Cookie.validate()...)

	if c.TouchInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: touch interval must not be negative", ErrInvalidSession))
	}
	if c.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(c.CleanupSchedule); err != nil {
			errs = append(errs, fmt.Errorf("%w: cleanup schedule %q: %w", ErrInvalidSession, c.CleanupSchedule, err))
		}
	}

	adapter, err := ParseAdapter(string(c.Adapter))
	if err != nil {
		errs = append(errs, err)
	}
	switch adapter {
	case AdapterMemory:
		errs = append(errs, c.Memory.validate()...)
	case AdapterRedis:
		errs = append(errs, c.Redis.validate()...)
	case AdapterMongo:
		errs = append(errs, c.Mongo.validate()...)
	case AdapterPostgres:
		errs = append(errs, c.Postgres.validate()...)
	}

	return errors.Join(errs...)
}

func (c Cookie) validate() []error {
	var errs []error
	if c.MaxAge != nil && *c.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("%w: maxAge must not be negative", ErrInvalidCookie))
	}
	if !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Errorf("%w: path %q must start with /", ErrInvalidCookie, c.Path))
	}
	switch strings.ToLower(c.SameSite) {
	case "", "lax", "strict":
	case "none":
		if !c.Secure {
			errs = append(errs, fmt.Errorf("%w: sameSite=none requires secure", ErrInvalidCookie))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: sameSite %q", ErrInvalidCookie, c.SameSite))
	}
	return errs
}

func (m Memory) validate() []error {
	var errs []error
	if m.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: ttl must be positive", ErrInvalidMemory))
	}
	if m.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("%w: maxEntries must not be negative", ErrInvalidMemory))
	}
	if m.CleanupInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: cleanupInterval must not be negative", ErrInvalidMemory))
	}
	return errs
}

func (r Redis) validate() []error {
	var errs []error
	if r.URL != "" {
		if !strings.HasPrefix(r.URL, "redis://") && !strings.HasPrefix(r.URL, "rediss://") {
			errs = append(errs, fmt.Errorf("%w: url must use redis:// or rediss://", ErrInvalidRedis))
		} else if _, err := goredis.ParseURL(r.URL); err != nil {
			errs = append(errs, fmt.Errorf("%w: url: %w", ErrInvalidRedis, err))
		}
	} else {
		if strings.TrimSpace(r.Host) == "" {
			errs = append(errs, fmt.Errorf("%w: host is required", ErrInvalidRedis))
		}
		if r.Port < 1 || r.Port > 65535 {
			errs = append(errs, fmt.Errorf("%w: port %d out of range", ErrInvalidRedis, r.Port))
		}
		if r.DB < 0 {
			errs = append(errs, fmt.Errorf("%w: db index must not be negative", ErrInvalidRedis))
		}
	}
	if r.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: ttl must be positive", ErrInvalidRedis))
	}
	if r.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("%w: poolSize must not be negative", ErrInvalidRedis))
	}
	return errs
}

func (m Mongo) validate() []error {
	var errs []error
	if m.URL == "" {
		errs = append(errs, fmt.Errorf("%w: url is required", ErrInvalidMongo))
	} else if cs, err := connstring.ParseAndValidate(m.URL); err != nil {
		errs = append(errs, fmt.Errorf("%w: url: %w", ErrInvalidMongo, err))
	} else if m.Database == "" && cs.Database == "" {
		errs = append(errs, fmt.Errorf("%w: database must be set in url or database", ErrInvalidMongo))
	}
	if strings.TrimSpace(m.Collection) == "" {
		errs = append(errs, fmt.Errorf("%w: collection is required", ErrInvalidMongo))
	}
	if m.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: ttl must be positive", ErrInvalidMongo))
	}
	return errs
}

func (p Postgres) validate() []error {
	var errs []error
	if p.URL == "" {
		errs = append(errs, fmt.Errorf("%w: url is required", ErrInvalidPostgres))
	} else if _, err := pgxpool.ParseConfig(p.URL); err != nil {
		errs = append(errs, fmt.Errorf("%w: url: %w", ErrInvalidPostgres, err))
	}
	if p.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: ttl must be positive", ErrInvalidPostgres))
	}
	if p.MaxConns <= 0 || p.MinConns < 0 || p.MinConns > p.MaxConns {
		errs = append(errs, fmt.Errorf("%w: need 0 <= minConns <= maxConns and maxConns > 0", ErrInvalidPostgres))
	}
	if strings.TrimSpace(p.MigrationsTable) == "" {
		errs = append(errs, fmt.Errorf("%w: migrationsTable is required", ErrInvalidPostgres))
	}
	return errs
}

// validCookieName follows the token rule of RFC 6265.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune(`()<>@,;:\"/[]?={}`, r) {
			return false
		}
	}
	return true
}
