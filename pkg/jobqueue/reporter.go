package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// Reporter applies the three handler outcomes to a leased job. The outcomes
// are mutually exclusive: each one consumes the lease, and a second report
// for the same lease returns ErrLeaseLost.
type Reporter struct {
	repo     LeaseRepository
	registry *Registry
	recorder FailureRecorder
	now      func() time.Time
	logger   *slog.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithFailureRecorder sets where terminal failures are recorded.
func WithFailureRecorder(r FailureRecorder) ReporterOption {
	return func(rp *Reporter) {
		if r != nil {
			rp.recorder = r
		}
	}
}

// WithReporterClock sets the time source used for backoff.
func WithReporterClock(now func() time.Time) ReporterOption {
	return func(rp *Reporter) {
		if now != nil {
			rp.now = now
		}
	}
}

// WithReporterLogger sets the logger for the reporter
func WithReporterLogger(l *slog.Logger) ReporterOption {
	return func(rp *Reporter) {
		if l != nil {
			rp.logger = l
		}
	}
}

// NewReporter creates a Reporter. Terminal failures go to a LogRecorder
// unless WithFailureRecorder is given.
func NewReporter(repo LeaseRepository, registry *Registry, opts ...ReporterOption) (*Reporter, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	r := &Reporter{
		repo:     repo,
		registry: registry,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.recorder == nil {
		r.recorder = LogRecorder{Logger: r.logger}
	}
	return r, nil
}

// Success deletes the envelope and its payload.
func (r *Reporter) Success(ctx context.Context, job *Job) error {
	lease, err := leaseOf(job)
	if err != nil {
		return err
	}
	if err := r.repo.CompleteLease(ctx, lease); err != nil {
		return fmt.Errorf("complete envelope %d: %w", job.ID, err)
	}
	return nil
}

// RetryableFailure puts the envelope back in the queue with failureCount
// incremented and notBefore moved by the work type's backoff. When the
// work type's MaxAttempts is reached the failure becomes terminal.
func (r *Reporter) RetryableFailure(ctx context.Context, job *Job, cause error) error {
	lease, err := leaseOf(job)
	if err != nil {
		return err
	}
	def, err := r.registry.MustLookup(job.WorkType)
	if err != nil {
		return r.TerminalFailure(ctx, job, err.Error())
	}

	failures := job.FailureCount + 1
	if def.Policy.MaxAttempts > 0 && failures >= def.Policy.MaxAttempts {
		return r.fail(ctx, job, fmt.Sprintf("giving up after %d attempts: %v", failures, cause), failures)
	}

	delay := def.Policy.Backoff.Delay(failures)
	notBefore := r.now().Add(delay)
	if err := r.repo.RetryLease(ctx, lease, notBefore); err != nil {
		return fmt.Errorf("retry envelope %d: %w", job.ID, err)
	}

	r.logger.WarnContext(ctx, "work item failed, retry scheduled",
		logger.EnvelopeID(job.ID),
		logger.WorkType(string(job.WorkType)),
		logger.FailureCount(failures),
		slog.Duration("backoff", delay),
		logger.Error(cause))
	return nil
}

// TerminalFailure deletes the envelope and emits a failure record. The
// record counts the attempt being failed now.
func (r *Reporter) TerminalFailure(ctx context.Context, job *Job, reason string) error {
	if job == nil {
		return ErrEnvelopeNotFound
	}
	return r.fail(ctx, job, reason, job.FailureCount+1)
}

func (r *Reporter) fail(ctx context.Context, job *Job, reason string, failures int) error {
	lease, err := leaseOf(job)
	if err != nil {
		return err
	}
	if err := r.repo.CompleteLease(ctx, lease); err != nil {
		return fmt.Errorf("fail envelope %d: %w", job.ID, err)
	}

	rec := NewFailureRecord(job, reason, r.now())
	rec.FailureCount = failures
	if err := r.recorder.RecordFailure(ctx, rec); err != nil {
		// The envelope is already gone; the record is best effort.
		r.logger.ErrorContext(ctx, "failed to record terminal failure",
			logger.EnvelopeID(job.ID),
			logger.WorkType(string(job.WorkType)),
			logger.Error(err))
	}
	return nil
}

// Release gives the lease back without counting a failure.
func (r *Reporter) Release(ctx context.Context, job *Job, notBefore time.Time) error {
	lease, err := leaseOf(job)
	if err != nil {
		return err
	}
	if err := r.repo.ReleaseLease(ctx, lease, notBefore); err != nil {
		return fmt.Errorf("release envelope %d: %w", job.ID, err)
	}
	return nil
}

func leaseOf(job *Job) (Lease, error) {
	if job == nil {
		return Lease{}, ErrEnvelopeNotFound
	}
	lease, ok := job.Lease()
	if !ok {
		return Lease{}, fmt.Errorf("envelope %d: %w", job.ID, ErrLeaseLost)
	}
	return lease, nil
}
