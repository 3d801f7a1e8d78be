package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// Enqueuer validates payloads against the registry and persists envelopes.
type Enqueuer struct {
	repo     EnqueuerRepository
	registry *Registry
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(repo EnqueuerRepository, registry *Registry, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	options := &enqueuerOptions{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:     repo,
		registry: registry,
		notifier: options.notifier,
		now:      options.now,
		logger:   options.logger,
	}, nil
}

// Bind returns a copy of e that writes through repo, typically a store bound
// to the caller's transaction. The copy never sends wake signals: call Notify
// on the original after the transaction commits.
func (e *Enqueuer) Bind(repo EnqueuerRepository) *Enqueuer {
	c := *e
	c.repo = repo
	c.notifier = nil
	return &c
}

// Enqueue validates payload and creates its envelope and payload row in one
// transaction. Priority, weight and delay default to the work type's policy.
func (e *Enqueuer) Enqueue(ctx context.Context, payload Payload, opts ...EnqueueOption) (int64, error) {
	def, err := e.registry.Validate(payload)
	if err != nil {
		return 0, err
	}

	options := &enqueueOptions{
		priority: def.Policy.Priority,
		weight:   def.Policy.Weight,
		delay:    def.Policy.Delay,
	}
	for _, opt := range opts {
		opt(options)
	}

	if !options.priority.Valid() {
		return 0, &ValidationError{WorkType: def.WorkType, Err: ErrInvalidPriority}
	}

	// Undelayed work leaves NotBefore and CreatedAt to the store's clock, so
	// it is eligible the moment the wake signal goes out.
	now := e.now()
	env := &Envelope{
		WorkType: def.WorkType,
		Priority: options.priority,
		Weight:   options.weight,
		Paused:   options.paused,
	}
	switch {
	case options.notBefore != nil:
		env.NotBefore = *options.notBefore
	case options.delay > 0:
		env.NotBefore = now.Add(options.delay)
	}

	id, err := e.repo.CreateEnvelope(ctx, env, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue %s: %w", def.WorkType, err)
	}

	e.logger.DebugContext(ctx, "work item enqueued",
		logger.EnvelopeID(id),
		logger.WorkType(string(def.WorkType)),
		logger.Priority(options.priority.String()),
		slog.Time("not_before", env.NotBefore))

	if env.Eligible(now) && !options.quiet {
		e.Notify(ctx)
	}

	return id, nil
}

// Notify sends a wake signal if a notifier is configured. Failures are
// logged; workers still pick the work up on their next poll.
func (e *Enqueuer) Notify(ctx context.Context) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx); err != nil {
		e.logger.WarnContext(ctx, "failed to send wake signal", logger.Error(err))
	}
}
