package config

import (
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// Default values applied by Default, Load and LoadFile.
const (
	DefaultCookieName      = "sid"
	DefaultCookiePath      = "/"
	DefaultSameSite        = "lax"
	DefaultTouchInterval   = 5 * time.Minute
	DefaultCleanupSchedule = "@every 5m"

	DefaultMemoryTTL   = 86400   // 1 day, seconds
	DefaultRedisTTL    = 86400   // 1 day, seconds
	DefaultMongoTTL    = 1209600 // 14 days, seconds
	DefaultPostgresTTL = 86400   // 1 day, seconds

	DefaultRedisHost       = "localhost"
	DefaultRedisPort       = 6379
	DefaultRedisPrefix     = "sess:"
	DefaultMongoCollection = "sessions"
)

// Config is the session configuration descriptor.
// It is loaded once at startup and must be treated as read-only afterwards.
type Config struct {
	// Secret signs session identifiers carried by the cookie.
	Secret string `env:"SECRET" yaml:"secret" json:"secret"`
	// PreviousSecrets are still accepted when verifying cookies, which lets
	// the secret be rotated without logging every user out.
	PreviousSecrets []string `env:"PREVIOUS_SECRETS" envSeparator:"," yaml:"previousSecrets,omitempty" json:"previousSecrets,omitempty"`
	// Name is the session cookie name.
	Name string `env:"NAME" envDefault:"sid" yaml:"name" json:"name"`

	Cookie Cookie `envPrefix:"COOKIE_" yaml:"cookie" json:"cookie"`

	// Adapter selects the session store backend. Empty means memory.
	Adapter Adapter `env:"ADAPTER" envDefault:"memory" yaml:"adapter" json:"adapter"`

	// Rolling re-sends the cookie on every response, resetting its expiry.
	Rolling bool `env:"ROLLING" envDefault:"false" yaml:"rolling" json:"rolling"`
	// SaveUninitialized persists sessions that were created but never modified.
	SaveUninitialized bool `env:"SAVE_UNINITIALIZED" envDefault:"false" yaml:"saveUninitialized" json:"saveUninitialized"`
	// TouchInterval is the minimum time between expiry extensions of an
	// unmodified session. Zero extends on every request.
	TouchInterval time.Duration `env:"TOUCH_INTERVAL" envDefault:"5m" yaml:"touchInterval" json:"touchInterval"`
	// CleanupSchedule is a cron spec for sweeping expired sessions from
	// stores without native expiry. Empty disables the sweeper.
	CleanupSchedule string `env:"CLEANUP_SCHEDULE" envDefault:"@every 5m" yaml:"cleanupSchedule" json:"cleanupSchedule"`

	Memory   Memory   `envPrefix:"MEMORY_" yaml:"memory" json:"memory"`
	Redis    Redis    `envPrefix:"REDIS_" yaml:"redis" json:"redis"`
	Mongo    Mongo    `envPrefix:"MONGO_" yaml:"mongo" json:"mongo"`
	Postgres Postgres `envPrefix:"POSTGRES_" yaml:"postgres" json:"postgres"`
}

// Cookie holds the session cookie attributes.
type Cookie struct {
	// MaxAge is the cookie lifetime in milliseconds.
	// nil produces a browser-session cookie, 0 expires the cookie immediately.
	MaxAge   *int64 `env:"MAX_AGE" yaml:"maxAge,omitempty" json:"maxAge,omitempty"`
	Path     string `env:"PATH" envDefault:"/" yaml:"path" json:"path"`
	Domain   string `env:"DOMAIN" yaml:"domain,omitempty" json:"domain,omitempty"`
	HTTPOnly bool   `env:"HTTP_ONLY" envDefault:"true" yaml:"httpOnly" json:"httpOnly"`
	// Secure should be true when the app is served only over TLS.
	Secure   bool   `env:"SECURE" envDefault:"false" yaml:"secure" json:"secure"`
	SameSite string `env:"SAME_SITE" envDefault:"lax" yaml:"sameSite" json:"sameSite"`
}

// Lifetime returns MaxAge as a duration and whether it was set at all.
// An unset MaxAge and a zero MaxAge are different: the first means a
// browser-session cookie, the second an already expired one.
func (c Cookie) Lifetime() (time.Duration, bool) {
	if c.MaxAge == nil {
		return 0, false
	}
	return time.Duration(*c.MaxAge) * time.Millisecond, true
}

// Memory configures the in-process store.
type Memory struct {
	TTL             int           `env:"TTL" envDefault:"86400" yaml:"ttl" json:"ttl"` // seconds
	MaxEntries      int           `env:"MAX_ENTRIES" envDefault:"0" yaml:"maxEntries" json:"maxEntries"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m" yaml:"cleanupInterval" json:"cleanupInterval"`
}

// Redis configures the key-value store adapter.
// URL takes precedence over the discrete connection fields.
type Redis struct {
	URL           string        `env:"URL" yaml:"url,omitempty" json:"url,omitempty"`
	Host          string        `env:"HOST" envDefault:"localhost" yaml:"host" json:"host"`
	Port          int           `env:"PORT" envDefault:"6379" yaml:"port" json:"port"`
	TTL           int           `env:"TTL" envDefault:"86400" yaml:"ttl" json:"ttl"` // seconds
	DB            int           `env:"DB" envDefault:"0" yaml:"db" json:"db"`
	Password      string        `env:"PASSWORD" yaml:"password,omitempty" json:"password,omitempty"`
	Prefix        string        `env:"PREFIX" envDefault:"sess:" yaml:"prefix" json:"prefix"`
	PoolSize      int           `env:"POOL_SIZE" envDefault:"10" yaml:"poolSize" json:"poolSize"`
	RetryAttempts int           `env:"RETRY_ATTEMPTS" envDefault:"3" yaml:"retryAttempts" json:"retryAttempts"`
	RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"5s" yaml:"retryInterval" json:"retryInterval"`
}

// ConnectionURL returns URL when set, otherwise a redis:// URL assembled
// from the discrete fields.
func (r Redis) ConnectionURL() string {
	if r.URL != "" {
		return r.URL
	}
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(r.Host, strconv.Itoa(r.Port)),
		Path:   "/" + strconv.Itoa(r.DB),
	}
	if r.Password != "" {
		u.User = url.UserPassword("", r.Password)
	}
	return u.String()
}

// Mongo configures the document store adapter.
type Mongo struct {
	// URL may embed credentials and the database name.
	URL string `env:"URL" yaml:"url,omitempty" json:"url,omitempty"`
	// Database overrides the database named in URL.
	Database   string `env:"DATABASE" yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `env:"COLLECTION" envDefault:"sessions" yaml:"collection" json:"collection"`
	TTL        int    `env:"TTL" envDefault:"1209600" yaml:"ttl" json:"ttl"` // seconds
	TLS        bool   `env:"TLS" envDefault:"false" yaml:"tls" json:"tls"`
	// Stringify stores the session payload as a JSON string instead of a sub-document.
	Stringify      bool          `env:"STRINGIFY" envDefault:"true" yaml:"stringify" json:"stringify"`
	MaxPoolSize    uint64        `env:"MAX_POOL_SIZE" envDefault:"100" yaml:"maxPoolSize" json:"maxPoolSize"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s" yaml:"connectTimeout" json:"connectTimeout"`
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"3" yaml:"retryAttempts" json:"retryAttempts"`
	RetryInterval  time.Duration `env:"RETRY_INTERVAL" envDefault:"5s" yaml:"retryInterval" json:"retryInterval"`
}

// DatabaseName returns Database, falling back to the database named in URL.
func (m Mongo) DatabaseName() string {
	if m.Database != "" {
		return m.Database
	}
	cs, err := connstring.Parse(m.URL)
	if err != nil {
		return ""
	}
	return cs.Database
}

// Postgres configures the SQL store adapter.
type Postgres struct {
	URL             string        `env:"URL" yaml:"url,omitempty" json:"url,omitempty"`
	TTL             int           `env:"TTL" envDefault:"86400" yaml:"ttl" json:"ttl"` // seconds
	MigrationsTable string        `env:"MIGRATIONS_TABLE" envDefault:"session_migrations" yaml:"migrationsTable" json:"migrationsTable"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"10" yaml:"maxConns" json:"maxConns"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2" yaml:"minConns" json:"minConns"`
	RetryAttempts   int           `env:"RETRY_ATTEMPTS" envDefault:"3" yaml:"retryAttempts" json:"retryAttempts"`
	RetryInterval   time.Duration `env:"RETRY_INTERVAL" envDefault:"5s" yaml:"retryInterval" json:"retryInterval"`
}

// Default returns a descriptor with every default applied and no secret.
func Default() Config {
	return Config{
		Name: DefaultCookieName,
		Cookie: Cookie{
			Path:     DefaultCookiePath,
			HTTPOnly: true,
			SameSite: DefaultSameSite,
		},
		Adapter:         AdapterMemory,
		TouchInterval:   DefaultTouchInterval,
		CleanupSchedule: DefaultCleanupSchedule,
		Memory: Memory{
			TTL:             DefaultMemoryTTL,
			CleanupInterval: time.Minute,
		},
		Redis: Redis{
			Host:          DefaultRedisHost,
			Port:          DefaultRedisPort,
			TTL:           DefaultRedisTTL,
			Prefix:        DefaultRedisPrefix,
			PoolSize:      10,
			RetryAttempts: 3,
			RetryInterval: 5 * time.Second,
		},
		Mongo: Mongo{
			Collection:     DefaultMongoCollection,
			TTL:            DefaultMongoTTL,
			Stringify:      true,
			MaxPoolSize:    100,
			ConnectTimeout: 10 * time.Second,
			RetryAttempts:  3,
			RetryInterval:  5 * time.Second,
		},
		Postgres: Postgres{
			TTL:             DefaultPostgresTTL,
			MigrationsTable: "session_migrations",
			MaxConns:        10,
			MinConns:        2,
			RetryAttempts:   3,
			RetryInterval:   5 * time.Second,
		},
	}
}

// StoreTTL is how long the selected store keeps a session when the cookie
// has no MaxAge.
func (c Config) StoreTTL() time.Duration {
	var seconds int
	switch c.Adapter {
	case AdapterRedis:
		seconds = c.Redis.TTL
	case AdapterMongo:
		seconds = c.Mongo.TTL
	case AdapterPostgres:
		seconds = c.Postgres.TTL
	default:
		seconds = c.Memory.TTL
	}
	return time.Duration(seconds) * time.Second
}

// LogValue keeps secrets and credentials out of logs.
func (c Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("name", c.Name),
		slog.String("adapter", string(c.Adapter)),
		slog.String("cookie_path", c.Cookie.Path),
		slog.Bool("cookie_http_only", c.Cookie.HTTPOnly),
		slog.Bool("cookie_secure", c.Cookie.Secure),
		slog.String("cookie_same_site", c.Cookie.SameSite),
		slog.Duration("store_ttl", c.StoreTTL()),
	}
	if lifetime, ok := c.Cookie.Lifetime(); ok {
		attrs = append(attrs, slog.Duration("cookie_max_age", lifetime))
	}
	return slog.GroupValue(attrs...)
}
