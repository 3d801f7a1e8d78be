package jobqueue

import "time"

// Config holds the runtime settings of workers and maintenance loops
type Config struct {
	PollInterval      time.Duration `env:"JOBQUEUE_POLL_INTERVAL" envDefault:"5s"`
	MaxConcurrentJobs int           `env:"JOBQUEUE_MAX_CONCURRENT_JOBS" envDefault:"10"`
	MinPriority       Priority      `env:"JOBQUEUE_MIN_PRIORITY" envDefault:"low"`
	LockRetryDelay    time.Duration `env:"JOBQUEUE_LOCK_RETRY_DELAY" envDefault:"10s"`
	ReapInterval      time.Duration `env:"JOBQUEUE_REAP_INTERVAL" envDefault:"30s"`
	ReapBatch         int           `env:"JOBQUEUE_REAP_BATCH" envDefault:"100"`
	HeartbeatInterval time.Duration `env:"JOBQUEUE_HEARTBEAT_INTERVAL" envDefault:"30s"`
	PruneWorkersAfter time.Duration `env:"JOBQUEUE_PRUNE_WORKERS_AFTER" envDefault:"10m"`
	SchedulerInterval time.Duration `env:"JOBQUEUE_SCHEDULER_INTERVAL" envDefault:"30s"`
	ShutdownTimeout   time.Duration `env:"JOBQUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	PolicyFile        string        `env:"JOBQUEUE_POLICY_FILE"`
}

// WorkerOptions converts the config into worker options
func (c Config) WorkerOptions() []WorkerOption {
	return []WorkerOption{
		WithPollInterval(c.PollInterval),
		WithMaxConcurrentJobs(c.MaxConcurrentJobs),
		WithMinPriority(c.MinPriority),
		WithLockRetryDelay(c.LockRetryDelay),
	}
}
