package jobqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

func TestReaper_Reap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	for range 5 {
		_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)
	}
	jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 5})
	require.NoError(t, err)
	require.Len(t, jobs, 5)

	notifier := &countingNotifier{}
	r, err := jobqueue.NewReaper(f.store,
		jobqueue.WithReapBatch(2),
		jobqueue.WithReaperNotifier(notifier),
		jobqueue.WithReaperLogger(discardLogger()))
	require.NoError(t, err)

	n, err := r.Reap(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, notifier.calls)

	f.clock.Advance(2 * time.Minute)
	n, err = r.Reap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 1, notifier.calls)

	count, err := f.store.CountQueued(ctx, notifyType)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestReaper_Start(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := jobqueue.NewReaper(nil)
	assert.ErrorIs(t, err, jobqueue.ErrRepositoryNil)

	id, err := f.enqueuer.Enqueue(context.Background(), &notifyPayload{Recipient: "a"})
	require.NoError(t, err)
	_, err = f.store.Dequeue(context.Background(), jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	r, err := jobqueue.NewReaper(f.store,
		jobqueue.WithReapInterval(10*time.Millisecond),
		jobqueue.WithReaperLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx)() }()

	assert.Eventually(t, func() bool {
		job, err := f.store.Peek(context.Background(), id)
		return err == nil && job.LeaseOwner == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
