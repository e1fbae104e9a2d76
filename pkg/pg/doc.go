// Package pg connects to the tenant-common ("landlord") PostgreSQL database
// that holds the tenant registry and the school directory.
//
// Connect opens a pgx pool with retries, Migrate applies the goose migrations
// under migrations/landlord and Healthcheck adapts the pool to a readiness
// probe. Config is populated from LANDLORD_DB_* environment variables.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
package pg
