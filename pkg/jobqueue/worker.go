package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// Worker claims envelopes and runs their handlers.
type Worker struct {
	repo      WorkerRepository
	registry  *Registry
	reporter  *Reporter
	handlers  map[WorkType]Handler
	workTypes []WorkType
	workerID  uuid.UUID
	sem       chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	stopMu    sync.Mutex // Protects stopping state and WaitGroup operations

	// Configuration
	pollInterval   time.Duration
	minPriority    Priority
	lockRetryDelay time.Duration
	handlerTimeout time.Duration
	notifier       Notifier
	now            func() time.Time
	logger         *slog.Logger

	// State management
	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a new worker
func NewWorker(repo WorkerRepository, registry *Registry, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	options := &workerOptions{
		workerID:          uuid.New(),
		pollInterval:      5 * time.Second,
		maxConcurrentJobs: 1,
		minPriority:       PriorityLow,
		lockRetryDelay:    10 * time.Second,
		now:               time.Now,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	reporterOpts := []ReporterOption{
		WithReporterClock(options.now),
		WithReporterLogger(options.logger),
	}
	if options.recorder != nil {
		reporterOpts = append(reporterOpts, WithFailureRecorder(options.recorder))
	}
	reporter, err := NewReporter(repo, registry, reporterOpts...)
	if err != nil {
		return nil, err
	}

	return &Worker{
		repo:           repo,
		registry:       registry,
		reporter:       reporter,
		handlers:       make(map[WorkType]Handler),
		workerID:       options.workerID,
		sem:            make(chan struct{}, options.maxConcurrentJobs),
		pollInterval:   options.pollInterval,
		minPriority:    options.minPriority,
		lockRetryDelay: options.lockRetryDelay,
		handlerTimeout: options.handlerTimeout,
		notifier:       options.notifier,
		now:            options.now,
		logger:         options.logger,
	}, nil
}

// RegisterHandler registers a handler for a registered work type
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}
	if _, err := w.registry.MustLookup(handler.WorkType()); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.WorkType()] = handler
	return nil
}

// RegisterHandlers registers multiple handlers
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.workTypes = w.workTypes[:0]
	for wt := range w.handlers {
		w.workTypes = append(w.workTypes, wt)
	}
	slices.Sort(w.workTypes)

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	var wake <-chan struct{}
	if w.notifier != nil {
		ch, err := w.notifier.Subscribe(w.ctx)
		if err != nil {
			w.logger.WarnContext(ctx, "wake signal unavailable, polling only",
				logger.WorkerID(w.workerID.String()),
				logger.Error(err))
		} else {
			wake = ch
		}
	}

	go w.run(wake)

	w.logger.InfoContext(ctx, "worker started",
		logger.WorkerID(w.workerID.String()),
		slog.Any("work_types", w.workTypes),
		slog.String("min_priority", w.minPriority.String()),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop stops claiming new work and waits for running handlers to report
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrNotStarted
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active jobs to complete",
		logger.WorkerID(w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		logger.WorkerID(w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main polling loop
func (w *Worker) run(wake <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.poll()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			w.poll()
		}
	}
}

// poll claims up to the number of free slots and starts a handler per job
func (w *Worker) poll() {
	free := cap(w.sem) - len(w.sem)
	if free <= 0 {
		w.logger.Debug("all worker slots busy, skipping poll",
			logger.WorkerID(w.workerID.String()))
		return
	}

	jobs, err := w.repo.Dequeue(w.ctx, DequeueParams{
		Owner:       w.workerID,
		MinPriority: w.minPriority,
		Limit:       free,
		WorkTypes:   w.workTypes,
	})
	if err != nil {
		if w.ctx.Err() == nil {
			w.logger.Error("failed to dequeue",
				logger.WorkerID(w.workerID.String()),
				logger.Error(err))
		}
		return
	}

	for _, job := range jobs {
		w.sem <- struct{}{}

		// Use stopMu to ensure we don't add to WaitGroup after Stop() starts
		w.stopMu.Lock()
		if w.stopping.Load() {
			w.stopMu.Unlock()
			<-w.sem
			w.giveBack(job)
			continue
		}
		w.wg.Add(1)
		w.stopMu.Unlock()

		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.process(job)
		}()
	}
}

// giveBack releases a job claimed while the worker was shutting down
func (w *Worker) giveBack(job *Job) {
	ctx := context.WithoutCancel(w.ctx)
	if err := w.reporter.Release(ctx, job, w.now()); err != nil {
		w.logger.WarnContext(ctx, "failed to release lease on shutdown",
			logger.EnvelopeID(job.ID),
			logger.Error(err))
	}
}

// process runs the handler for one job and reports the outcome
func (w *Worker) process(job *Job) {
	start := w.now()
	ctx := WithJob(context.WithoutCancel(w.ctx), job)

	w.mu.RLock()
	handler, ok := w.handlers[job.WorkType]
	w.mu.RUnlock()

	if !ok {
		w.logger.ErrorContext(ctx, "no handler registered for work type",
			logger.WorkerID(w.workerID.String()))
		reason := fmt.Sprintf("%s: %s", ErrHandlerNotFound, job.WorkType)
		w.logOutcomeError(ctx, w.reporter.TerminalFailure(ctx, job, reason))
		return
	}

	if lk, ok := job.Payload.(LockKeyer); ok {
		if name := lk.LockKey(); name != "" {
			held, release := w.acquireLock(ctx, job, name)
			if !held {
				return
			}
			defer release()
		}
	}

	err := w.invoke(ctx, handler, job)
	duration := w.now().Sub(start)

	switch {
	case err == nil:
		if rerr := w.reporter.Success(ctx, job); rerr != nil {
			w.logOutcomeError(ctx, rerr)
			return
		}
		w.logger.InfoContext(ctx, "work item completed",
			logger.WorkerID(w.workerID.String()),
			logger.Duration(duration))

	case IsTerminal(err):
		w.logger.ErrorContext(ctx, "work item failed terminally",
			logger.WorkerID(w.workerID.String()),
			logger.FailureCount(job.FailureCount),
			logger.Duration(duration),
			logger.Error(err))
		w.logOutcomeError(ctx, w.reporter.TerminalFailure(ctx, job, err.Error()))

	default:
		w.logOutcomeError(ctx, w.reporter.RetryableFailure(ctx, job, err))
	}
}

// acquireLock takes the named lock for job, held by the claim's lease token
// so sibling jobs of this worker never release each other's locks. When it
// is held elsewhere the lease is released with notBefore pushed by
// lockRetryDelay, without counting a failure.
func (w *Worker) acquireLock(ctx context.Context, job *Job, name string) (bool, func()) {
	lease, err := leaseOf(job)
	if err != nil {
		w.logOutcomeError(ctx, err)
		return false, nil
	}
	ttl := w.registry.LeaseDuration(job.WorkType)
	held, err := w.repo.AcquireNamedLock(ctx, name, lease.Token, ttl)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to acquire named lock",
			logger.LockName(name),
			logger.Error(err))
	}
	if err != nil || !held {
		w.logger.DebugContext(ctx, "named lock busy, deferring work item",
			logger.LockName(name),
			slog.Duration("retry_in", w.lockRetryDelay))
		w.logOutcomeError(ctx, w.reporter.Release(ctx, job, w.now().Add(w.lockRetryDelay)))
		return false, nil
	}

	return true, func() {
		if err := w.repo.ReleaseNamedLock(ctx, name, lease.Token); err != nil {
			w.logger.ErrorContext(ctx, "failed to release named lock",
				logger.LockName(name),
				logger.Error(err))
		}
	}
}

// invoke calls the handler with panic recovery. The handler context expires
// at the lease deadline unless a handler timeout is configured.
func (w *Worker) invoke(ctx context.Context, handler Handler, job *Job) (err error) {
	timeout := w.handlerTimeout
	if timeout <= 0 && job.LeaseDeadline != nil {
		timeout = job.LeaseDeadline.Sub(w.now())
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
			w.logger.ErrorContext(ctx, "handler panicked",
				logger.WorkerID(w.workerID.String()),
				slog.Any("panic", r))
		}
	}()

	return handler.Handle(ctx, job)
}

func (w *Worker) logOutcomeError(ctx context.Context, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrLeaseLost):
		w.logger.WarnContext(ctx, "lease lost before the outcome was recorded",
			logger.WorkerID(w.workerID.String()),
			logger.Error(err))
	default:
		w.logger.ErrorContext(ctx, "failed to record outcome",
			logger.WorkerID(w.workerID.String()),
			logger.Error(err))
	}
}

// ExtendLease pushes the lease deadline of a running job to now+d, and the
// expiry of its named lock with it. The handler context keeps its original
// deadline; combine with WithHandlerTimeout for handlers that outlive their
// initial lease.
func (w *Worker) ExtendLease(ctx context.Context, job *Job, d time.Duration) error {
	lease, err := leaseOf(job)
	if err != nil {
		return err
	}
	extended, err := w.repo.ExtendLease(ctx, lease, d)
	if err != nil {
		return fmt.Errorf("extend lease of envelope %d: %w", job.ID, err)
	}
	job.LeaseDeadline = &extended.Deadline

	if lk, ok := job.Payload.(LockKeyer); ok {
		if name := lk.LockKey(); name != "" {
			if err := w.repo.ExtendNamedLock(ctx, name, lease.Token, d); err != nil {
				return fmt.Errorf("extend lock of envelope %d: %w", job.ID, err)
			}
		}
	}
	return nil
}

// ID returns the lease owner id of the worker
func (w *Worker) ID() uuid.UUID {
	return w.workerID
}

// WorkerInfo describes this process for cluster registration
func (w *Worker) WorkerInfo(port int) WorkerInfo {
	hostname, _ := os.Hostname()
	return WorkerInfo{
		WorkerID: w.workerID,
		Host:     hostname,
		PID:      os.Getpid(),
		Port:     port,
	}
}
