// Package mongostore is the document session store adapter.
//
// Sessions are stored one per document keyed by _id. The values live in the
// "session" field, as a JSON string by default or as an embedded document
// when stringify is off, which makes them queryable from the shell. A TTL
// index on "expires" lets MongoDB purge stale sessions itself.
//
//	coll, err := mongo.Collection(ctx, cfg.Mongo)
//	store := mongostore.New(coll, mongostore.WithStringify(cfg.Mongo.Stringify))
//	if err := store.EnsureIndexes(ctx); err != nil { ... }
package mongostore
