package jobqueue

import (
	"log/slog"
	"time"
)

// EnqueuerOption is a functional option for configuring an Enqueuer
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// WithNotifier wakes workers when an enqueued envelope is immediately eligible.
func WithNotifier(n Notifier) EnqueuerOption {
	return func(o *enqueuerOptions) {
		o.notifier = n
	}
}

// WithEnqueuerClock sets the time source used for notBefore.
func WithEnqueuerClock(now func() time.Time) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEnqueuerLogger sets the logger for the enqueuer
func WithEnqueuerLogger(logger *slog.Logger) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	priority  Priority
	weight    int
	delay     time.Duration
	notBefore *time.Time
	paused    bool
	quiet     bool
}

// WithPriority sets the priority tier of the envelope
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithWeight sets the ordering hint within the priority tier
func WithWeight(weight int) EnqueueOption {
	return func(o *enqueueOptions) {
		o.weight = weight
	}
}

// WithDelay makes the envelope ineligible for d after enqueue
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if d >= 0 {
			o.delay = d
		}
	}
}

// WithNotBefore sets the earliest claim time explicitly, overriding any delay
func WithNotBefore(t time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.notBefore = &t
	}
}

// WithPaused enqueues the envelope administratively suspended
func WithPaused() EnqueueOption {
	return func(o *enqueueOptions) {
		o.paused = true
	}
}

// WithoutNotify suppresses the wake signal for this envelope
func WithoutNotify() EnqueueOption {
	return func(o *enqueueOptions) {
		o.quiet = true
	}
}
