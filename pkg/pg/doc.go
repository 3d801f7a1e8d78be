// Package pg bootstraps the PostgreSQL side of the job queue: a pgx/v5
// connection pool with retries, goose migrations read from an fs.FS, a
// health probe, and classifiers for the SQLSTATE codes the store cares about.
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
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
package pg
