package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// Scheduler enqueues periodic work such as mailbox polling and cleanup
// sweeps. At most one unleased envelope per periodic work type is kept in
// the queue.
type Scheduler struct {
	repo     SchedulerRepository
	registry *Registry
	enqueuer *Enqueuer
	work     map[WorkType]*periodicWork
	mu       sync.RWMutex
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// periodicWork holds configuration for a periodic work type
type periodicWork struct {
	payload         Payload
	schedule        Schedule
	opts            periodicOptions
	lastScheduledAt *time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(repo SchedulerRepository, registry *Registry, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	enqueuer, err := NewEnqueuer(repo, registry,
		WithNotifier(options.notifier),
		WithEnqueuerClock(options.now),
		WithEnqueuerLogger(options.logger))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		repo:     repo,
		registry: registry,
		enqueuer: enqueuer,
		work:     make(map[WorkType]*periodicWork),
		interval: options.checkInterval,
		now:      options.now,
		logger:   options.logger,
	}, nil
}

// AddWork registers payload to be enqueued on schedule. The payload is
// validated once here and reused for every run.
func (s *Scheduler) AddWork(payload Payload, schedule Schedule, opts ...PeriodicOption) error {
	def, err := s.registry.Validate(payload)
	if err != nil {
		return err
	}
	if schedule == nil {
		return fmt.Errorf("periodic %s: schedule cannot be nil", def.WorkType)
	}

	var o periodicOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.work[def.WorkType]; exists {
		return fmt.Errorf("%w: periodic %s", ErrWorkTypeRegistered, def.WorkType)
	}
	s.work[def.WorkType] = &periodicWork{
		payload:  payload,
		schedule: schedule,
		opts:     o,
	}

	s.logger.Info("registered periodic work",
		logger.WorkType(string(def.WorkType)),
		slog.String("schedule", schedule.String()))

	return nil
}

// RemoveWork stops scheduling wt. Envelopes already queued are kept.
func (s *Scheduler) RemoveWork(wt WorkType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.work, wt)
}

// ListWork returns the periodic work types, sorted
func (s *Scheduler) ListWork() []WorkType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]WorkType, 0, len(s.work))
	for wt := range s.work {
		out = append(out, wt)
	}
	slices.Sort(out)
	return out
}

// Start checks for due work immediately and then on every interval until
// ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	count := len(s.work)
	s.mu.RUnlock()

	if count == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Run returns a function suitable for errgroup
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		return s.Start(ctx)
	}
}

// Tick runs one scheduling pass over every periodic work type
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.RLock()
	due := make([]WorkType, 0, len(s.work))
	for wt := range s.work {
		due = append(due, wt)
	}
	s.mu.RUnlock()
	slices.Sort(due)

	now := s.now()
	for _, wt := range due {
		if err := s.scheduleIfNeeded(ctx, wt, now); err != nil {
			s.logger.ErrorContext(ctx, "failed to schedule periodic work",
				logger.WorkType(string(wt)),
				logger.Error(err))
		}
	}
}

func (s *Scheduler) scheduleIfNeeded(ctx context.Context, wt WorkType, now time.Time) error {
	s.mu.RLock()
	w, ok := s.work[wt]
	var last *time.Time
	if ok {
		last = w.lastScheduledAt
	}
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	// First run is always scheduled; later runs follow the previous one
	nextRun := w.schedule.Next(now)
	if last != nil {
		nextRun = w.schedule.Next(*last)
		if nextRun.After(now) {
			return nil
		}
	}

	queued, err := s.repo.CountQueued(ctx, wt)
	if err != nil {
		return fmt.Errorf("count queued %s: %w", wt, err)
	}
	if queued > 0 {
		s.setLastScheduled(wt, nextRun)
		s.logger.DebugContext(ctx, "periodic work already queued",
			logger.WorkType(string(wt)),
			slog.Int64("queued", queued))
		return nil
	}

	opts := []EnqueueOption{WithNotBefore(nextRun)}
	if w.opts.priority != nil {
		opts = append(opts, WithPriority(*w.opts.priority))
	}
	if w.opts.weight != nil {
		opts = append(opts, WithWeight(*w.opts.weight))
	}
	id, err := s.enqueuer.Enqueue(ctx, w.payload, opts...)
	if err != nil {
		return err
	}
	s.setLastScheduled(wt, nextRun)

	s.logger.InfoContext(ctx, "enqueued periodic work",
		logger.EnvelopeID(id),
		logger.WorkType(string(wt)),
		slog.Time("scheduled_for", nextRun))
	return nil
}

func (s *Scheduler) setLastScheduled(wt WorkType, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.work[wt]; ok {
		w.lastScheduledAt = &at
	}
}
