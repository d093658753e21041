package config

import "errors"

var (
	ErrMissingSecret   = errors.New("config: session secret is required")
	ErrUnknownAdapter  = errors.New("config: unknown session adapter")
	ErrInvalidCookie   = errors.New("config: invalid cookie options")
	ErrInvalidSession  = errors.New("config: invalid session options")
	ErrInvalidMemory   = errors.New("config: invalid memory store options")
	ErrInvalidRedis    = errors.New("config: invalid redis store options")
	ErrInvalidMongo    = errors.New("config: invalid mongo store options")
	ErrInvalidPostgres = errors.New("config: invalid postgres store options")
	ErrLoad            = errors.New("config: failed to load configuration")
)
