package jobqueue

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	workerID          uuid.UUID
	pollInterval      time.Duration
	maxConcurrentJobs int
	minPriority       Priority
	lockRetryDelay    time.Duration
	handlerTimeout    time.Duration
	notifier          Notifier
	recorder          FailureRecorder
	now               func() time.Time
	logger            *slog.Logger
}

// WithWorkerID sets the lease owner id, normally the registrar's WorkerID.
func WithWorkerID(id uuid.UUID) WorkerOption {
	return func(o *workerOptions) {
		if id != uuid.Nil {
			o.workerID = id
		}
	}
}

// WithPollInterval sets how often the worker checks for new work
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxConcurrentJobs sets the maximum number of handlers running at once
func WithMaxConcurrentJobs(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrentJobs = n
		}
	}
}

// WithMinPriority restricts the worker to tiers at or above p
func WithMinPriority(p Priority) WorkerOption {
	return func(o *workerOptions) {
		if p.Valid() {
			o.minPriority = p
		}
	}
}

// WithLockRetryDelay sets how long an envelope waits after its named lock
// was found held
func WithLockRetryDelay(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockRetryDelay = d
		}
	}
}

// WithHandlerTimeout bounds handler execution. By default a handler may
// run until its lease deadline.
func WithHandlerTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.handlerTimeout = d
		}
	}
}

// WithWakeNotifier makes the worker poll on wake signals as well as on the interval
func WithWakeNotifier(n Notifier) WorkerOption {
	return func(o *workerOptions) {
		o.notifier = n
	}
}

// WithWorkerFailureRecorder sets where terminal failures are recorded
func WithWorkerFailureRecorder(r FailureRecorder) WorkerOption {
	return func(o *workerOptions) {
		o.recorder = r
	}
}

// WithWorkerClock sets the time source used for backoff and lock retries
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(o *workerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
