// Package httpserver runs the jobqueue admin API with graceful shutdown,
// configurable timeouts and structured logging via slog.
//
// Run binds the listener first, so an invalid or busy address fails fast
// with ErrStart, then serves until the context is cancelled. It does not
// install signal handlers; cmd/jobqueued cancels the shared errgroup context
// on SIGINT/SIGTERM and every component, the server included, drains.
//
// HealthCheckHandler reports liveness or per-dependency readiness as JSON:
//
//	r.Get("/healthz", httpserver.HealthCheckHandler(log, 2*time.Second,
//		httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)},
//		httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)},
//	))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, r) })
//
// Run wraps listen errors with ErrStart, while Shutdown wraps underlying
// shutdown errors with ErrShutdown.
package httpserver
