// Package pgstore is the SQL session store adapter on PostgreSQL.
//
// Sessions live in a single sessions table whose values column is JSONB.
// The schema ships as an embedded goose migration:
//
//	pool, err := db.Connect(ctx, cfg.Postgres)
//	err = db.Migrate(ctx, pool, pgstore.Migrations(), cfg.Postgres.MigrationsTable, logger)
//	store := pgstore.New(pool)
//
// Expired rows are rejected on read and removed by DeleteExpired, which the
// kit runs on its cleanup schedule.
package pgstore
