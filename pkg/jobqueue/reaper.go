package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// Reaper periodically reclaims envelopes whose lease expired without an
// outcome. It is the only crash-recovery path: a worker that dies mid-handler
// is detected purely by lease expiry.
type Reaper struct {
	repo     ReaperRepository
	interval time.Duration
	batch    int
	notifier Notifier
	logger   *slog.Logger
}

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithReapInterval sets how often expired leases are scanned
func WithReapInterval(d time.Duration) ReaperOption {
	return func(r *Reaper) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithReapBatch sets how many envelopes one reclaim transaction touches
func WithReapBatch(n int) ReaperOption {
	return func(r *Reaper) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithReaperNotifier wakes workers after envelopes were reclaimed
func WithReaperNotifier(n Notifier) ReaperOption {
	return func(r *Reaper) {
		r.notifier = n
	}
}

// WithReaperLogger sets the logger for the reaper
func WithReaperLogger(l *slog.Logger) ReaperOption {
	return func(r *Reaper) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReaper creates a new Reaper
func NewReaper(repo ReaperRepository, opts ...ReaperOption) (*Reaper, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	r := &Reaper{
		repo:     repo,
		interval: 30 * time.Second,
		batch:    100,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Reap reclaims expired leases in batches until none are left and returns
// the number of envelopes made eligible again.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	total := 0
	for {
		ids, err := r.repo.ReclaimExpired(ctx, r.batch)
		if err != nil {
			return total, fmt.Errorf("reclaim expired leases: %w", err)
		}
		total += len(ids)
		if len(ids) > 0 {
			r.logger.InfoContext(ctx, "reclaimed expired leases",
				logger.Component("reaper"),
				slog.Any("envelope_ids", ids))
		}
		if len(ids) < r.batch {
			break
		}
	}

	if total > 0 && r.notifier != nil {
		if err := r.notifier.Notify(ctx); err != nil {
			r.logger.WarnContext(ctx, "failed to send wake signal",
				logger.Component("reaper"),
				logger.Error(err))
		}
	}
	return total, nil
}

// Start reaps on every interval until ctx is done
func (r *Reaper) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.reapAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper shutting down", logger.Component("reaper"))
			return nil
		case <-ticker.C:
			r.reapAndLog(ctx)
		}
	}
}

// Run returns a function suitable for errgroup
func (r *Reaper) Run(ctx context.Context) func() error {
	return func() error {
		return r.Start(ctx)
	}
}

func (r *Reaper) reapAndLog(ctx context.Context) {
	if _, err := r.Reap(ctx); err != nil && ctx.Err() == nil {
		r.logger.ErrorContext(ctx, "reaper pass failed",
			logger.Component("reaper"),
			logger.Error(err))
	}
}
