// Command jobqueued runs the queue maintenance loops next to the operator
// API: migrations, the worker registrar, the lease reaper, the periodic work
// scheduler and the admin HTTP server, all under one errgroup. Handlers for
// the work types run in the processes that own them, not here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/jobqueue/pkg/config"
	"github.com/dmitrymomot/jobqueue/pkg/httpserver"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue/admin"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue/pgstore"
	"github.com/dmitrymomot/jobqueue/pkg/logger"
	"github.com/dmitrymomot/jobqueue/pkg/mongo"
	"github.com/dmitrymomot/jobqueue/pkg/pg"
	"github.com/dmitrymomot/jobqueue/pkg/redis"
	"github.com/dmitrymomot/jobqueue/pkg/workitems"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("jobqueued stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var s settings
	if err := errors.Join(
		config.Load(&s.App),
		config.Load(&s.Postgres),
		config.Load(&s.Queue),
		config.Load(&s.Admin),
	); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(s.App.Env, s.App.ServiceName),
		logger.WithContextExtractors(jobqueue.ContextExtractors()...),
	}
	if s.App.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevelName(s.App.LogLevel))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	registry := jobqueue.NewRegistry()
	if err := workitems.Register(registry); err != nil {
		return fmt.Errorf("register work items: %w", err)
	}
	if err := applyPolicyFile(registry, s.Queue.PolicyFile); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, s.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !s.App.SkipMigrations {
		if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, s.Postgres, log); err != nil {
			return err
		}
	}

	store, err := pgstore.New(pool, registry, pgstore.WithLogger(log))
	if err != nil {
		return err
	}

	checks := []httpserver.Check{{Name: "postgres", Probe: pg.Healthcheck(pool)}}
	// job_failures is the default failure listing; mongo replaces it below
	adminOpts := []admin.Option{admin.WithLogger(log), admin.WithFailureLister(store)}

	var notifier jobqueue.Notifier = jobqueue.NewLocalNotifier()
	if s.App.RedisEnabled {
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return err
		}
		defer client.Close()

		if notifier, err = redis.NewNotifier(client, rcfg.NotifyChannel, redis.WithNotifierLogger(log)); err != nil {
			return err
		}
		checks = append(checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
	}

	if s.App.MongoEnabled {
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return err
		}
		archive, client, err := mongo.NewFailureArchiveFromConfig(ctx, mcfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.WithoutCancel(ctx)) }()

		adminOpts = append(adminOpts, admin.WithFailureLister(archive))
		checks = append(checks, httpserver.Check{Name: "mongo", Probe: mongo.Healthcheck(client)})
	}
	adminOpts = append(adminOpts, admin.WithHealthChecks(checks...))

	host, _ := os.Hostname()
	registrar, err := jobqueue.NewRegistrar(store, jobqueue.WorkerInfo{
		WorkerID: uuid.New(),
		Host:     host,
		PID:      os.Getpid(),
		Port:     adminPort(s.Admin.Addr),
	},
		jobqueue.WithHeartbeatInterval(s.Queue.HeartbeatInterval),
		jobqueue.WithPruneAfter(s.Queue.PruneWorkersAfter),
		jobqueue.WithRegistrarLogger(log),
	)
	if err != nil {
		return err
	}

	reaper, err := jobqueue.NewReaper(store,
		jobqueue.WithReapInterval(s.Queue.ReapInterval),
		jobqueue.WithReapBatch(s.Queue.ReapBatch),
		jobqueue.WithReaperNotifier(notifier),
		jobqueue.WithReaperLogger(log),
	)
	if err != nil {
		return err
	}

	scheduler, err := jobqueue.NewScheduler(store, registry,
		jobqueue.WithCheckInterval(s.Queue.SchedulerInterval),
		jobqueue.WithSchedulerNotifier(notifier),
		jobqueue.WithSchedulerLogger(log),
	)
	if err != nil {
		return err
	}
	if err := workitems.PeriodicWork(scheduler); err != nil {
		return fmt.Errorf("schedule periodic work: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(registrar.Run(gctx))
	g.Go(reaper.Run(gctx))
	g.Go(scheduler.Run(gctx))

	if s.Admin.Enabled {
		api, err := admin.New(store, adminOpts...)
		if err != nil {
			return err
		}
		srv := httpserver.NewFromConfig(s.Admin, httpserver.WithLogger(log))
		g.Go(func() error { return srv.Run(gctx, api.Handler()) })
	}

	log.InfoContext(ctx, "jobqueued started",
		slog.Int("work_types", len(registry.WorkTypes())),
		slog.Bool("redis", s.App.RedisEnabled),
		slog.Bool("mongo", s.App.MongoEnabled))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("jobqueued stopped")
	return nil
}

// applyPolicyFile merges per-work-type overrides from a YAML file.
func applyPolicyFile(registry *jobqueue.Registry, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()

	overrides, err := jobqueue.LoadPolicies(f)
	if err != nil {
		return fmt.Errorf("load policy file %s: %w", path, err)
	}
	return registry.ApplyPolicies(overrides)
}

func adminPort(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}
