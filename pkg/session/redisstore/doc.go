// Package redisstore is the key-value session store adapter.
//
// Each session is one Redis string holding its JSON encoding, stored under
// the configured prefix ("sess:" by default) with the session TTL as the key
// expiry, so Redis drops stale sessions on its own and no sweeper is needed.
//
//	client, err := redis.OpenConfig(ctx, cfg.Redis)
//	store := redisstore.New(client, redisstore.WithPrefix(cfg.Redis.Prefix))
package redisstore
