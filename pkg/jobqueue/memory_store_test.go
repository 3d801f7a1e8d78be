package jobqueue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

func TestMemoryStore_NewMemoryStore(t *testing.T) {
	t.Parallel()

	_, err := jobqueue.NewMemoryStore(nil)
	assert.ErrorIs(t, err, jobqueue.ErrRegistryNil)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := &notifyPayload{Recipient: "mailto:user01@example.com", Body: "BEGIN:VCALENDAR"}
	id, err := f.enqueuer.Enqueue(ctx, in)
	require.NoError(t, err)
	assert.Positive(t, id)

	jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].ID)
	assert.Equal(t, in, jobs[0].Payload)
}

func TestMemoryStore_Dequeue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("tiers in order", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		low, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"}, jobqueue.WithPriority(jobqueue.PriorityLow))
		require.NoError(t, err)
		high, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "b"}, jobqueue.WithPriority(jobqueue.PriorityHigh))
		require.NoError(t, err)
		medium, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "c"}, jobqueue.WithPriority(jobqueue.PriorityMedium))
		require.NoError(t, err)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), MinPriority: jobqueue.PriorityLow, Limit: 3})
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, []int64{high, medium, low}, []int64{jobs[0].ID, jobs[1].ID, jobs[2].ID})
	})

	t.Run("high first with limit one", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		for _, p := range []jobqueue.Priority{jobqueue.PriorityLow, jobqueue.PriorityMedium, jobqueue.PriorityHigh} {
			_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: p.String()}, jobqueue.WithPriority(p))
			require.NoError(t, err)
		}

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, jobqueue.PriorityHigh, jobs[0].Priority)
	})

	t.Run("min priority excludes lower tiers", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"}, jobqueue.WithPriority(jobqueue.PriorityLow))
		require.NoError(t, err)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), MinPriority: jobqueue.PriorityMedium, Limit: 5})
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("weight then insertion order", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		first, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)
		heavy, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "b"}, jobqueue.WithWeight(10))
		require.NoError(t, err)
		second, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "c"})
		require.NoError(t, err)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 3})
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, []int64{heavy, first, second}, []int64{jobs[0].ID, jobs[1].ID, jobs[2].ID})
	})

	t.Run("future notBefore is ineligible", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		id, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"}, jobqueue.WithNotBefore(f.clock.Now().Add(time.Hour)))
		require.NoError(t, err)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		assert.Empty(t, jobs)

		f.clock.Advance(time.Hour)
		jobs, err = f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, id, jobs[0].ID)
	})

	t.Run("paused is ineligible", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		id, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"}, jobqueue.WithPaused())
		require.NoError(t, err)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		assert.Empty(t, jobs)

		require.NoError(t, f.store.SetPaused(ctx, id, false))
		jobs, err = f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
	})

	t.Run("leased is not returned twice", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		require.Len(t, jobs, 1)

		again, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("work type filter", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"}, jobqueue.WithPriority(jobqueue.PriorityHigh))
		require.NoError(t, err)
		purge, err := f.enqueuer.Enqueue(ctx, &purgePayload{Principal: "user01"})
		require.NoError(t, err)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{
			Owner:     uuid.New(),
			Limit:     5,
			WorkTypes: []jobqueue.WorkType{purgeType},
		})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, purge, jobs[0].ID)
	})

	t.Run("lease fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)

		owner := uuid.New()
		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: owner, Limit: 1})
		require.NoError(t, err)
		require.Len(t, jobs, 1)

		lease, ok := jobs[0].Lease()
		require.True(t, ok)
		assert.Equal(t, owner, lease.Owner)
		assert.NotEqual(t, uuid.Nil, lease.Token)
		assert.Equal(t, f.clock.Now(), lease.LeasedAt)
		assert.Equal(t, f.clock.Now().Add(time.Minute), lease.Deadline)
		assert.Equal(t, jobqueue.StateLeased, jobs[0].State(f.clock.Now()))
	})

	t.Run("zero limit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New()})
		require.NoError(t, err)
		assert.NotNil(t, jobs)
		assert.Empty(t, jobs)
	})
}

func TestMemoryStore_ConcurrentDequeue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for range 50 {
		f := newFixture(t)
		id, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			winners atomic.Int32
			empties atomic.Int32
		)
		start := make(chan struct{})
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
				assert.NoError(t, err)
				switch len(jobs) {
				case 0:
					empties.Add(1)
				case 1:
					assert.Equal(t, id, jobs[0].ID)
					winners.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
		assert.Equal(t, int32(1), empties.Load())
	}
}

func TestMemoryStore_ReclaimExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
	require.NoError(t, err)

	workerA := uuid.New()
	jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: workerA, Limit: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	leaseA, _ := jobs[0].Lease()

	ids, err := f.store.ReclaimExpired(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids, "unexpired lease must not be reclaimed")

	f.clock.Advance(time.Minute + time.Second)

	peek, err := f.store.Peek(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StateReclaimable, peek.State(f.clock.Now()))

	ids, err = f.store.ReclaimExpired(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)

	workerB := uuid.New()
	jobs, err = f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: workerB, Limit: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].ID)
	assert.Equal(t, workerB, *jobs[0].LeaseOwner)

	t.Run("stale token is rejected", func(t *testing.T) {
		err := f.store.CompleteLease(ctx, leaseA)
		assert.ErrorIs(t, err, jobqueue.ErrLeaseLost)

		_, err = f.store.Peek(ctx, id)
		assert.NoError(t, err, "envelope leased by B must survive A's completion")
	})
}

func TestMemoryStore_ReclaimExpiredLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	for range 3 {
		_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)
	}
	_, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 3})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)

	ids, err := f.store.ReclaimExpired(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	ids, err = f.store.ReclaimExpired(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestMemoryStore_LeaseOutcomes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	claim := func(t *testing.T, f *fixture) (int64, jobqueue.Lease) {
		t.Helper()
		id, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)
		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		lease, ok := jobs[0].Lease()
		require.True(t, ok)
		return id, lease
	}

	t.Run("complete deletes", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id, lease := claim(t, f)

		require.NoError(t, f.store.CompleteLease(ctx, lease))
		_, err := f.store.Peek(ctx, id)
		assert.ErrorIs(t, err, jobqueue.ErrEnvelopeNotFound)

		assert.ErrorIs(t, f.store.CompleteLease(ctx, lease), jobqueue.ErrLeaseLost)
	})

	t.Run("retry bumps failure count", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id, lease := claim(t, f)

		notBefore := f.clock.Now().Add(time.Minute)
		require.NoError(t, f.store.RetryLease(ctx, lease, notBefore))

		job, err := f.store.Peek(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, job.FailureCount)
		assert.Equal(t, notBefore, job.NotBefore)
		assert.Nil(t, job.LeaseOwner)
		assert.Equal(t, jobqueue.StateQueued, job.State(f.clock.Now()))

		assert.ErrorIs(t, f.store.RetryLease(ctx, lease, notBefore), jobqueue.ErrLeaseLost)
	})

	t.Run("release keeps failure count", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id, lease := claim(t, f)

		require.NoError(t, f.store.ReleaseLease(ctx, lease, f.clock.Now()))

		job, err := f.store.Peek(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, job.FailureCount)
		assert.Nil(t, job.LeaseOwner)
	})

	t.Run("extend moves deadline", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id, lease := claim(t, f)

		f.clock.Advance(30 * time.Second)
		extended, err := f.store.ExtendLease(ctx, lease, 5*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, f.clock.Now().Add(5*time.Minute), extended.Deadline)

		f.clock.Advance(2 * time.Minute)
		ids, err := f.store.ReclaimExpired(ctx, 10)
		require.NoError(t, err)
		assert.NotContains(t, ids, id)
	})

	t.Run("delete while leased", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id, lease := claim(t, f)

		require.NoError(t, f.store.Delete(ctx, id))
		assert.ErrorIs(t, f.store.CompleteLease(ctx, lease), jobqueue.ErrLeaseLost)
	})
}

func TestMemoryStore_EnvelopeOperations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("delete is idempotent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		id, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)
		require.NoError(t, f.store.Delete(ctx, id))
		require.NoError(t, f.store.Delete(ctx, id))
		require.NoError(t, f.store.Delete(ctx, 9999))
	})

	t.Run("update for retry", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		id, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
		require.NoError(t, err)
		_, err = f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)

		notBefore := f.clock.Now().Add(time.Hour)
		require.NoError(t, f.store.UpdateForRetry(ctx, id, notBefore))

		job, err := f.store.Peek(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, job.FailureCount)
		assert.Nil(t, job.LeaseOwner)
		assert.Nil(t, job.LeaseDeadline)
		assert.Equal(t, notBefore, job.NotBefore)

		assert.ErrorIs(t, f.store.UpdateForRetry(ctx, 9999, notBefore), jobqueue.ErrEnvelopeNotFound)
	})

	t.Run("pause by work type", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		for range 2 {
			_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
			require.NoError(t, err)
		}
		_, err := f.enqueuer.Enqueue(ctx, &purgePayload{Principal: "p"})
		require.NoError(t, err)

		n, err := f.store.SetPausedByWorkType(ctx, notifyType, true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		paused := true
		list, err := f.store.ListEnvelopes(ctx, jobqueue.EnvelopeFilter{Paused: &paused})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 5})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, purgeType, jobs[0].WorkType)

		n, err = f.store.SetPausedByWorkType(ctx, notifyType, false)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("delete by work type", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		for range 3 {
			_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
			require.NoError(t, err)
		}
		n, err := f.store.DeleteByWorkType(ctx, notifyType)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		count, err := f.store.CountQueued(ctx, notifyType)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("list filters and pages", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		var ids []int64
		for range 5 {
			id, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"})
			require.NoError(t, err)
			ids = append(ids, id)
		}
		_, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)

		leased, err := f.store.ListEnvelopes(ctx, jobqueue.EnvelopeFilter{State: jobqueue.StateLeased})
		require.NoError(t, err)
		require.Len(t, leased, 1)
		assert.Equal(t, ids[0], leased[0].ID)

		page, err := f.store.ListEnvelopes(ctx, jobqueue.EnvelopeFilter{WorkType: notifyType, Offset: 1, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[1], page[0].ID)
		assert.Equal(t, ids[2], page[1].ID)

		count, err := f.store.CountQueued(ctx, notifyType)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("histogram", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		for range 2 {
			_, err := f.enqueuer.Enqueue(ctx, &notifyPayload{Recipient: "a"}, jobqueue.WithPriority(jobqueue.PriorityHigh))
			require.NoError(t, err)
		}
		_, err := f.enqueuer.Enqueue(ctx, &purgePayload{Principal: "p"}, jobqueue.WithPaused())
		require.NoError(t, err)
		jobs, err := f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		lease, _ := jobs[0].Lease()
		require.NoError(t, f.store.RetryLease(ctx, lease, f.clock.Now()))
		_, err = f.store.Dequeue(ctx, jobqueue.DequeueParams{Owner: uuid.New(), Limit: 1})
		require.NoError(t, err)

		stats, err := f.store.Histogram(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 2)

		assert.Equal(t, notifyType, stats[0].WorkType)
		assert.Equal(t, int64(1), stats[0].Queued)
		assert.Equal(t, int64(1), stats[0].Leased)
		assert.Equal(t, 1, stats[0].MaxFailureCount)

		assert.Equal(t, purgeType, stats[1].WorkType)
		assert.Equal(t, int64(1), stats[1].Paused)
	})
}

func TestMemoryStore_NamedLocks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("held until released", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		a, b := uuid.New(), uuid.New()

		ok, err := f.store.AcquireNamedLock(ctx, "purge:user42", a, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.store.AcquireNamedLock(ctx, "purge:user42", b, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, f.store.ReleaseNamedLock(ctx, "purge:user42", b))
		ok, err = f.store.AcquireNamedLock(ctx, "purge:user42", b, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok, "release by a non-holder is a no-op")

		require.NoError(t, f.store.ReleaseNamedLock(ctx, "purge:user42", a))
		ok, err = f.store.AcquireNamedLock(ctx, "purge:user42", b, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		locks, err := f.store.ListNamedLocks(ctx)
		require.NoError(t, err)
		require.Len(t, locks, 1)
		assert.Equal(t, b, locks[0].Holder)
	})

	t.Run("expired lock is taken over", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		ok, err := f.store.AcquireNamedLock(ctx, "group:g1", uuid.New(), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		f.clock.Advance(time.Minute + time.Second)
		ok, err = f.store.AcquireNamedLock(ctx, "group:g1", uuid.New(), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("extend keeps the lock past its ttl", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		holder := uuid.New()

		ok, err := f.store.AcquireNamedLock(ctx, "purge:user42", holder, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		err = f.store.ExtendNamedLock(ctx, "purge:user42", uuid.New(), time.Hour)
		assert.ErrorIs(t, err, jobqueue.ErrNamedLockLost)
		require.NoError(t, f.store.ExtendNamedLock(ctx, "purge:user42", holder, time.Hour))

		f.clock.Advance(30 * time.Minute)
		ok, err = f.store.AcquireNamedLock(ctx, "purge:user42", uuid.New(), time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, f.store.ReleaseNamedLock(ctx, "purge:user42", holder))
		err = f.store.ExtendNamedLock(ctx, "purge:user42", holder, time.Hour)
		assert.ErrorIs(t, err, jobqueue.ErrNamedLockLost)
	})

	t.Run("concurrent acquire", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := f.store.AcquireNamedLock(ctx, "purge:user42", uuid.New(), time.Minute)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}

func TestMemoryStore_Workers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	info := jobqueue.WorkerInfo{WorkerID: uuid.New(), Host: "cal01", PID: 4242, Port: 8008}
	id, err := f.store.RegisterWorker(ctx, info)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.store.Heartbeat(ctx, id))

	workers, err := f.store.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, info, workers[0].WorkerInfo)
	assert.Equal(t, f.clock.Now(), workers[0].HeartbeatAt)
	assert.Equal(t, f.clock.Now().Add(-time.Minute), workers[0].StartedAt)

	stale, err := f.store.RegisterWorker(ctx, jobqueue.WorkerInfo{WorkerID: uuid.New(), Host: "cal02"})
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)
	require.NoError(t, f.store.Heartbeat(ctx, id))

	n, err := f.store.PruneWorkers(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.ErrorIs(t, f.store.Heartbeat(ctx, stale), jobqueue.ErrWorkerNotFound)

	require.NoError(t, f.store.Deregister(ctx, id))
	require.NoError(t, f.store.Deregister(ctx, id))
	workers, err = f.store.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Empty(t, workers)
}
