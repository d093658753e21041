// Package redis opens go-redis clients for the key-value session store.
//
// [Open] parses a redis:// or rediss:// URL, applies pool settings and pings
// the server, retrying with a linearly growing wait so that a store that
// starts slower than the app does not abort startup. [OpenConfig] does the
// same from the descriptor's redis section:
//
//	client, err := redis.OpenConfig(ctx, cfg.Redis, redis.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
// [Healthcheck] and [Shutdown] return closures for readiness probes and
// shutdown hooks.
//
// Errors are wrapped using [errors.Join] around the sentinels
// [ErrEmptyConnectionURL], [ErrFailedToParseURL], [ErrConnectionFailed] and
// [ErrHealthcheckFailed].
package redis
