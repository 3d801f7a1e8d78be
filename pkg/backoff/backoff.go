// Package backoff provides retry delay strategies for failed jobs.
//
// Every strategy is stateless and monotonically non-decreasing in the failure
// count, so a job that keeps failing never becomes eligible sooner than it was
// after its previous failure.
package backoff

import (
	"math"
	"time"
)

// Strategy computes the delay before the next attempt of a failed job.
type Strategy interface {
	// Delay returns how long to wait after the n-th failure (1-indexed).
	Delay(failures int) time.Duration
}

// Func adapts a plain function to Strategy.
type Func func(failures int) time.Duration

// Delay calls f.
func (f Func) Delay(failures int) time.Duration { return f(failures) }

// Constant always returns the same delay.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Linear grows the delay by Initial for every failure, capped at Max.
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

func (l *Linear) Delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := l.Initial * time.Duration(failures)
	if l.Max > 0 && (d > l.Max || d < 0) {
		return l.Max
	}
	return d
}

// Exponential doubles the delay on every failure, capped at Max.
// Delay = min(Initial * 2^(failures-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

func (e *Exponential) Delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	f := float64(e.Initial) * math.Pow(2, float64(failures-1))
	if e.Max > 0 && f > float64(e.Max) {
		return e.Max
	}
	if f > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(f)
}

// Steps walks an explicit delay table; failures past the end reuse the last
// entry. Entries are sorted on construction to keep the strategy monotonic.
type Steps struct {
	delays []time.Duration
}

// NewSteps creates a table-driven backoff strategy.
func NewSteps(delays ...time.Duration) *Steps {
	sorted := make([]time.Duration, len(delays))
	copy(sorted, delays)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] < sorted[i-1] {
			sorted[i] = sorted[i-1]
		}
	}
	return &Steps{delays: sorted}
}

func (s *Steps) Delay(failures int) time.Duration {
	if len(s.delays) == 0 {
		return 0
	}
	if failures < 1 {
		failures = 1
	}
	if failures > len(s.delays) {
		return s.delays[len(s.delays)-1]
	}
	return s.delays[failures-1]
}

// Default is used for work types that do not declare their own strategy:
// exponential from 5s, capped at 10m.
func Default() Strategy {
	return NewExponential(5*time.Second, 10*time.Minute)
}
