package jobqueue_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobqueue/pkg/backoff"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

const (
	notifyType jobqueue.WorkType = "test_notify"
	purgeType  jobqueue.WorkType = "test_purge"
)

type notifyPayload struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

func (*notifyPayload) WorkType() jobqueue.WorkType { return notifyType }

func (p *notifyPayload) Validate() error {
	if p.Recipient == "" {
		return errors.New("recipient is required")
	}
	return nil
}

type purgePayload struct {
	Principal string `json:"principal"`
}

func (*purgePayload) WorkType() jobqueue.WorkType { return purgeType }

func (p *purgePayload) Validate() error { return nil }

func (p *purgePayload) LockKey() string { return "purge:" + p.Principal }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T) *jobqueue.Registry {
	t.Helper()
	reg := jobqueue.NewRegistry()
	require.NoError(t, jobqueue.Register[notifyPayload](reg, "test_notify_work", jobqueue.Policy{
		LeaseDuration: time.Minute,
		Backoff:       backoff.NewConstant(10 * time.Second),
		MaxAttempts:   3,
	}))
	require.NoError(t, jobqueue.Register[purgePayload](reg, "test_purge_work", jobqueue.Policy{
		Priority:      jobqueue.PriorityLow,
		LeaseDuration: 2 * time.Minute,
	}))
	return reg
}

type fixture struct {
	reg      *jobqueue.Registry
	clock    *testClock
	store    *jobqueue.MemoryStore
	enqueuer *jobqueue.Enqueuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := newTestRegistry(t)
	clock := newTestClock()
	store, err := jobqueue.NewMemoryStore(reg, jobqueue.WithMemoryClock(clock.Now))
	require.NoError(t, err)
	enq, err := jobqueue.NewEnqueuer(store, reg,
		jobqueue.WithEnqueuerClock(clock.Now),
		jobqueue.WithEnqueuerLogger(discardLogger()))
	require.NoError(t, err)
	return &fixture{reg: reg, clock: clock, store: store, enqueuer: enq}
}
