// Package db connects the SQL session store to PostgreSQL.
//
// [Connect] builds a pgx pool from the descriptor's postgres section and
// retries until the server answers a ping:
//
//	pool, err := db.Connect(ctx, cfg.Postgres, db.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
// [Migrate] applies embedded goose migrations through a database/sql view
// of the same pool:
//
//	err = db.Migrate(ctx, pool, pgstore.Migrations(), cfg.Postgres.MigrationsTable, logger)
//
// [Healthcheck] and [Shutdown] return closures for readiness probes and
// shutdown hooks.
package db
