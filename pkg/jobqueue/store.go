package jobqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository persists an envelope and its payload atomically.
type EnqueuerRepository interface {
	// CreateEnvelope assigns env.ID and writes the envelope and payload in
	// one transaction.
	CreateEnvelope(ctx context.Context, env *Envelope, payload Payload) (int64, error)
}

// LeaseRepository is the worker side of the lease protocol. Every method is
// a single short transaction; none blocks behind a row another caller holds.
type LeaseRepository interface {
	// Dequeue claims up to Limit eligible envelopes, highest tier first,
	// skipping rows concurrently being claimed. Returns an empty slice when
	// nothing is eligible.
	Dequeue(ctx context.Context, params DequeueParams) ([]*Job, error)

	// CompleteLease deletes the envelope if the lease token still matches.
	CompleteLease(ctx context.Context, lease Lease) error

	// RetryLease clears the lease, increments failureCount and moves notBefore.
	RetryLease(ctx context.Context, lease Lease, notBefore time.Time) error

	// ReleaseLease clears the lease without counting a failure.
	ReleaseLease(ctx context.Context, lease Lease, notBefore time.Time) error

	// ExtendLease pushes the lease deadline to now+d.
	ExtendLease(ctx context.Context, lease Lease, d time.Duration) (Lease, error)
}

// ReaperRepository reclaims abandoned leases.
type ReaperRepository interface {
	// ReclaimExpired clears up to limit leases whose deadline has passed and
	// returns the ids that became eligible again.
	ReclaimExpired(ctx context.Context, limit int) ([]int64, error)
}

// LockRepository provides named mutual exclusion across envelopes.
type LockRepository interface {
	// AcquireNamedLock inserts the lock row; false when another holder has
	// an unexpired row.
	AcquireNamedLock(ctx context.Context, name string, holder uuid.UUID, ttl time.Duration) (bool, error)
	// ReleaseNamedLock deletes the row if holder still owns it.
	ReleaseNamedLock(ctx context.Context, name string, holder uuid.UUID) error
	// ExtendNamedLock moves the expiry of a lock holder still owns to now+d.
	// ErrNamedLockLost when the row is gone or belongs to someone else.
	ExtendNamedLock(ctx context.Context, name string, holder uuid.UUID, d time.Duration) error
	ListNamedLocks(ctx context.Context) ([]NamedLock, error)
}

// ClusterRepository keeps the worker registration table.
type ClusterRepository interface {
	RegisterWorker(ctx context.Context, info WorkerInfo) (int64, error)
	Heartbeat(ctx context.Context, registrationID int64) error
	// Deregister is idempotent.
	Deregister(ctx context.Context, registrationID int64) error
	ListWorkers(ctx context.Context) ([]WorkerRegistration, error)
	// PruneWorkers removes registrations silent for longer than olderThan.
	PruneWorkers(ctx context.Context, olderThan time.Duration) (int64, error)
}

// EnvelopeRepository is the envelope store contract used by operators.
type EnvelopeRepository interface {
	Peek(ctx context.Context, id int64) (*Job, error)
	// Delete is idempotent: a missing id is not an error.
	Delete(ctx context.Context, id int64) error
	// UpdateForRetry clears any lease, increments failureCount and sets notBefore.
	UpdateForRetry(ctx context.Context, id int64, notBefore time.Time) error
	ListEnvelopes(ctx context.Context, filter EnvelopeFilter) ([]Envelope, error)
	SetPaused(ctx context.Context, id int64, paused bool) error
	SetPausedByWorkType(ctx context.Context, wt WorkType, paused bool) (int64, error)
	DeleteByWorkType(ctx context.Context, wt WorkType) (int64, error)
	// CountQueued counts unleased envelopes of wt.
	CountQueued(ctx context.Context, wt WorkType) (int64, error)
	Histogram(ctx context.Context) ([]WorkTypeStats, error)
}

// WorkerRepository is everything a Worker needs.
type WorkerRepository interface {
	LeaseRepository
	LockRepository
}

// SchedulerRepository is everything the periodic Scheduler needs.
type SchedulerRepository interface {
	EnqueuerRepository
	CountQueued(ctx context.Context, wt WorkType) (int64, error)
}

// Store is the full persistence contract implemented by MemoryStore and
// pgstore.Store.
type Store interface {
	EnqueuerRepository
	LeaseRepository
	ReaperRepository
	LockRepository
	ClusterRepository
	EnvelopeRepository
}
