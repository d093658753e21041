package config

import (
	"fmt"
	"strings"
)

// Adapter names a session store backend.
type Adapter string

// Supported adapters.
const (
	AdapterMemory   Adapter = "memory"
	AdapterRedis    Adapter = "redis"
	AdapterMongo    Adapter = "mongo"
	AdapterPostgres Adapter = "postgres"
)

// ParseAdapter resolves an adapter name, including the connect-* aliases,
// to its canonical form. An empty name selects the memory store.
func ParseAdapter(name string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "memory", "default":
		return AdapterMemory, nil
	case "redis", "connect-redis":
		return AdapterRedis, nil
	case "mongo", "mongodb", "connect-mongo":
		return AdapterMongo, nil
	case "postgres", "postgresql", "pg":
		return AdapterPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}
}

// IsExternal reports whether the adapter talks to a server outside the process.
func (a Adapter) IsExternal() bool {
	return a == AdapterRedis || a == AdapterMongo || a == AdapterPostgres
}

func (a Adapter) String() string {
	return string(a)
}
