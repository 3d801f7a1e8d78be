package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// Registrar keeps the registration row of this process fresh. Registrations
// are informational: they never gate dequeue.
type Registrar struct {
	repo       ClusterRepository
	info       WorkerInfo
	interval   time.Duration
	pruneAfter time.Duration
	logger     *slog.Logger

	registrationID atomic.Int64
}

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithHeartbeatInterval sets how often the registration is refreshed
func WithHeartbeatInterval(d time.Duration) RegistrarOption {
	return func(r *Registrar) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithPruneAfter removes registrations whose last heartbeat is older than d
// on every beat. Zero disables pruning.
func WithPruneAfter(d time.Duration) RegistrarOption {
	return func(r *Registrar) {
		if d >= 0 {
			r.pruneAfter = d
		}
	}
}

// WithRegistrarLogger sets the logger for the registrar
func WithRegistrarLogger(l *slog.Logger) RegistrarOption {
	return func(r *Registrar) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistrar creates a Registrar for info
func NewRegistrar(repo ClusterRepository, info WorkerInfo, opts ...RegistrarOption) (*Registrar, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	r := &Registrar{
		repo:     repo,
		info:     info,
		interval: 30 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RegistrationID returns the current registration id, 0 before Start.
func (r *Registrar) RegistrationID() int64 {
	return r.registrationID.Load()
}

// Start registers the process, heartbeats until ctx is done, then
// deregisters.
func (r *Registrar) Start(ctx context.Context) error {
	if err := r.register(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return r.deregister(dctx)
		case <-ticker.C:
			r.beat(ctx)
		}
	}
}

// Run returns a function suitable for errgroup
func (r *Registrar) Run(ctx context.Context) func() error {
	return func() error {
		return r.Start(ctx)
	}
}

func (r *Registrar) register(ctx context.Context) error {
	id, err := r.repo.RegisterWorker(ctx, r.info)
	if err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	r.registrationID.Store(id)

	r.logger.InfoContext(ctx, "worker registered",
		logger.Component("registrar"),
		logger.WorkerID(r.info.WorkerID.String()),
		slog.Int64("registration_id", id),
		slog.String("host", r.info.Host),
		slog.Int("pid", r.info.PID),
		slog.Int("port", r.info.Port))
	return nil
}

// beat refreshes the registration, registering again if another process
// pruned it.
func (r *Registrar) beat(ctx context.Context) {
	err := r.repo.Heartbeat(ctx, r.registrationID.Load())
	if errors.Is(err, ErrWorkerNotFound) {
		err = r.register(ctx)
	}
	if err != nil {
		if ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "heartbeat failed",
				logger.Component("registrar"),
				logger.Error(err))
		}
		return
	}

	if r.pruneAfter > 0 {
		n, err := r.repo.PruneWorkers(ctx, r.pruneAfter)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to prune stale workers",
				logger.Component("registrar"),
				logger.Error(err))
			return
		}
		if n > 0 {
			r.logger.InfoContext(ctx, "pruned stale worker registrations",
				logger.Component("registrar"),
				slog.Int64("count", n))
		}
	}
}

func (r *Registrar) deregister(ctx context.Context) error {
	id := r.registrationID.Swap(0)
	if id == 0 {
		return nil
	}
	if err := r.repo.Deregister(ctx, id); err != nil {
		return fmt.Errorf("deregister worker: %w", err)
	}
	r.logger.InfoContext(ctx, "worker deregistered",
		logger.Component("registrar"),
		slog.Int64("registration_id", id))
	return nil
}
