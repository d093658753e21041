// Package mongo connects the document session store to MongoDB using the
// official v2 driver.
//
// [Connect] applies the descriptor's mongo section (URL, pool size, connect
// timeout, TLS) and pings the primary, retrying so that cold starts of a
// hosted cluster do not abort startup:
//
//	coll, err := mongo.Collection(ctx, cfg.Mongo, mongo.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
// Errors wrap [ErrEmptyConnectionURL], [ErrFailedToConnectToMongo] and
// [ErrHealthcheckFailed] with [errors.Join].
package mongo
