// Package config defines the session configuration descriptor: the secret
// that signs session IDs, the session cookie attributes and the store
// adapter with its connection options.
//
// The descriptor is loaded once at startup, either from SESSION_* environment
// variables or from a YAML file, and validated before anything uses it.
// Selecting an external adapter (redis, mongo, postgres) without valid
// connection options is a startup error, never a silent fallback.
//
// # Loading
//
//	cfg, err := config.Load() // SESSION_SECRET, SESSION_ADAPTER, ...
//	if err != nil {
//		log.Fatal(err)
//	}
//
// or from a file:
//
//	cfg, err := config.LoadFile("config/session.yaml")
//
// A minimal file:
//
//	secret: 57e1b4c5e0660b778000b900a26a8393
//	cookie:
//	  maxAge: 86400000 # 24h in milliseconds; omit for a browser-session cookie
//	adapter: redis
//	redis:
//	  host: localhost
//	  port: 6379
//	  ttl: 86400
//	  prefix: "sess:"
//
// # Cookie lifetime
//
// Cookie.MaxAge is a pointer on purpose. nil means the cookie lives as long
// as the browser session; a pointer to 0 means the cookie expires
// immediately. Use [Cookie.Lifetime] to read it.
//
// # Adapters
//
//   - memory (default, also "" and "default"): in-process, single instance only
//   - redis (also "connect-redis"): host/port/db/password/prefix or url, ttl in seconds
//   - mongo (also "mongodb", "connect-mongo"): url, collection, ttl, tls, stringify
//   - postgres: url, migrations table, pool sizing
package config
