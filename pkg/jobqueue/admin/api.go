package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/jobqueue/pkg/httpserver"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// Repository is the part of a store the admin API reads and mutates.
type Repository interface {
	jobqueue.EnvelopeRepository
	ListNamedLocks(ctx context.Context) ([]jobqueue.NamedLock, error)
	ListWorkers(ctx context.Context) ([]jobqueue.WorkerRegistration, error)
}

// FailureLister returns archived terminal failures, newest first.
type FailureLister interface {
	Recent(ctx context.Context, wt jobqueue.WorkType, limit int64) ([]jobqueue.FailureRecord, error)
}

// API serves the operator endpoints.
type API struct {
	repo          Repository
	failures      FailureLister
	checks        []httpserver.Check
	healthTimeout time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures the API.
type Option func(*API)

// WithFailureLister enables GET /failures.
func WithFailureLister(f FailureLister) Option {
	return func(a *API) { a.failures = f }
}

// WithHealthChecks turns /healthz into a readiness probe over checks.
func WithHealthChecks(checks ...httpserver.Check) Option {
	return func(a *API) { a.checks = append(a.checks, checks...) }
}

// WithHealthTimeout bounds each readiness probe run.
func WithHealthTimeout(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.healthTimeout = d
		}
	}
}

// WithClock sets the time source for not_before_age and retry delays.
func WithClock(now func() time.Time) Option {
	return func(a *API) {
		if now != nil {
			a.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates the API over repo.
func New(repo Repository, opts ...Option) (*API, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	a := &API{
		repo:          repo,
		healthTimeout: 2 * time.Second,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("admin"))
	return a, nil
}

// Handler returns the router with every route mounted.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(a.logger, a.healthTimeout, a.checks...))

	r.Route("/envelopes", func(r chi.Router) {
		r.Get("/", a.listEnvelopes)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.peekEnvelope)
			r.Delete("/", a.deleteEnvelope)
			r.Post("/pause", a.pauseEnvelope(true))
			r.Post("/resume", a.pauseEnvelope(false))
			r.Post("/retry", a.retryEnvelope)
		})
	})

	r.Route("/work-types", func(r chi.Router) {
		r.Get("/", a.histogram)
		r.Route("/{workType}", func(r chi.Router) {
			r.Get("/queued", a.countQueued)
			r.Post("/pause", a.pauseWorkType(true))
			r.Post("/resume", a.pauseWorkType(false))
			r.Delete("/", a.deleteWorkType)
		})
	})

	r.Get("/workers", a.listWorkers)
	r.Get("/locks", a.listLocks)
	r.Get("/failures", a.listFailures)

	return r
}
