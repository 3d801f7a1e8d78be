package httpserver

import (
	"context"
	"log/slog"
	"time"
)

// Option configures the HTTP server. Invalid values are ignored and the
// default stays in place.
type Option func(*config)

// StartHook runs once the listener is bound; addr is the resolved address.
type StartHook func(ctx context.Context, addr string)

// StopHook runs after graceful shutdown returns.
type StopHook func(ctx context.Context)

// WithAddr sets the listen address. Use "127.0.0.1:0" for an ephemeral port
// and read it back with Server.Addr or a StartHook.
func WithAddr(addr string) Option {
	return func(c *config) {
		if addr != "" {
			c.addr = addr
		}
	}
}

// WithTimeouts sets the read, write and idle timeouts in one call. Zero
// leaves the corresponding timeout unchanged.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(c *config) {
		if read > 0 {
			c.readTimeout = read
		}
		if write > 0 {
			c.writeTimeout = write
		}
		if idle > 0 {
			c.idleTimeout = idle
		}
	}
}

func WithReadHeaderTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.readHeaderTimeout = d
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithLogger sets the server logger; nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithStartHook(h StartHook) Option {
	return func(c *config) {
		if h != nil {
			c.startHooks = append(c.startHooks, h)
		}
	}
}

func WithStopHook(h StopHook) Option {
	return func(c *config) {
		if h != nil {
			c.stopHooks = append(c.stopHooks, h)
		}
	}
}
