package jobqueue

import (
	"log/slog"
	"time"
)

// SchedulerOption is a functional option for configuring a scheduler
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	checkInterval time.Duration
	notifier      Notifier
	now           func() time.Time
	logger        *slog.Logger
}

// WithCheckInterval sets how often the scheduler checks for due work
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// WithSchedulerNotifier wakes workers when periodic work becomes eligible
func WithSchedulerNotifier(n Notifier) SchedulerOption {
	return func(o *schedulerOptions) {
		o.notifier = n
	}
}

// WithSchedulerClock sets the time source
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(o *schedulerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSchedulerLogger sets the logger for the scheduler
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// PeriodicOption configures one periodic work item
type PeriodicOption func(*periodicOptions)

type periodicOptions struct {
	priority *Priority
	weight   *int
}

// WithPeriodicPriority overrides the work type's default priority
func WithPeriodicPriority(p Priority) PeriodicOption {
	return func(o *periodicOptions) {
		if p.Valid() {
			o.priority = &p
		}
	}
}

// WithPeriodicWeight overrides the work type's default weight
func WithPeriodicWeight(w int) PeriodicOption {
	return func(o *periodicOptions) {
		o.weight = &w
	}
}
