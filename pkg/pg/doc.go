// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool
// with startup retries, goose schema migrations, and a healthcheck
// closure for the HTTP server.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil { ... }
//
// Error helpers (IsNotFoundError, IsDuplicateKeyError) classify pgx
// errors without leaking driver types into business code.
package pg
