package redis

import "errors"

var (
	// ErrEmptyConnectionURL means neither a URL nor discrete fields were given.
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")
	// ErrFailedToParseURL wraps URL scheme and syntax errors.
	ErrFailedToParseURL = errors.New("redis: failed to parse connection URL")
	// ErrConnectionFailed is returned once every connection attempt failed.
	ErrConnectionFailed = errors.New("redis: failed to establish connection")
	// ErrHealthcheckFailed wraps a failed ping.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
