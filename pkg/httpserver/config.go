package httpserver

import "time"

type Config struct {
	Addr            string        `env:"JOBQUEUE_ADMIN_ADDR" envDefault:":8089"`          // Addr is the address the admin API listens on.
	ReadTimeout     time.Duration `env:"JOBQUEUE_ADMIN_READ_TIMEOUT" envDefault:"15s"`    // ReadTimeout is the maximum duration for reading the entire request.
	WriteTimeout    time.Duration `env:"JOBQUEUE_ADMIN_WRITE_TIMEOUT" envDefault:"30s"`   // WriteTimeout is the maximum duration before timing out writes of the response.
	IdleTimeout     time.Duration `env:"JOBQUEUE_ADMIN_IDLE_TIMEOUT" envDefault:"120s"`   // IdleTimeout is the keep-alive idle limit.
	ShutdownTimeout time.Duration `env:"JOBQUEUE_ADMIN_SHUTDOWN_TIMEOUT" envDefault:"5s"` // ShutdownTimeout is the time allowed for graceful shutdown.
	Enabled         bool          `env:"JOBQUEUE_ADMIN_ENABLED" envDefault:"true"`        // Enabled turns the admin API off when false.
}

// NewFromConfig creates a new Server from the provided Config. Zero values
// keep the defaults; opts are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	return New(append([]Option{
		WithAddr(cfg.Addr),
		WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout),
		WithShutdownTimeout(cfg.ShutdownTimeout),
	}, opts...)...)
}
