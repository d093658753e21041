package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SESSION_"

var (
	dotenvOnce sync.Once
	dotenvErr  error
)

// loadDotenv reads .env from the working directory once per process.
// A missing file is not an error.
func loadDotenv() error {
	dotenvOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			dotenvErr = err
		}
	})
	return dotenvErr
}

// Load builds the descriptor from SESSION_* environment variables
// (and .env, if present) and validates it.
//
//	SESSION_SECRET=...            (required)
//	SESSION_ADAPTER=redis
//	SESSION_COOKIE_MAX_AGE=86400000
//	SESSION_REDIS_HOST=localhost
func Load() (Config, error) {
	if err := loadDotenv(); err != nil {
		return Config{}, errors.Join(ErrLoad, err)
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(ErrLoad, err)
	}

	return finalize(cfg)
}

// LoadFile reads a YAML (or JSON) descriptor from path on top of Default
// and validates it.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Join(ErrLoad, err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON descriptor on top of Default and validates it.
// Unknown keys are rejected so that typos fail at startup.
// JSON durations may be nanosecond integers (as json.Marshal writes them)
// or strings such as "5m".
func Parse(data []byte) (Config, error) {
	if isJSON(data) {
		cfg := Default()
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err == nil {
			return finalize(cfg)
		}
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Join(ErrLoad, err)
	}

	return finalize(cfg)
}

func isJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Env populates any struct tagged for caarlos0/env, reading .env first.
// Use it for settings that live next to the session descriptor.
func Env(dst any) error {
	if err := loadDotenv(); err != nil {
		return errors.Join(ErrLoad, err)
	}
	if err := env.Parse(dst); err != nil {
		return errors.Join(ErrLoad, err)
	}
	return nil
}

// MustLoad is Load that panics. Intended for main packages.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func finalize(cfg Config) (Config, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize canonicalizes enum-like fields so that aliases compare equal.
func (c *Config) normalize() {
	if a, err := ParseAdapter(string(c.Adapter)); err == nil {
		c.Adapter = a
	}
	c.Cookie.SameSite = strings.ToLower(c.Cookie.SameSite)
}
