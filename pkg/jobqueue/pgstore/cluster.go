package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

// AcquireNamedLock implements jobqueue.LockRepository. An expired row is
// taken over in place; a live one leaves the insert a no-op.
func (s *Store) AcquireNamedLock(ctx context.Context, name string, holder uuid.UUID, ttl time.Duration) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO job_named_locks AS l (name, holder, acquired_at, expires_at)
		VALUES ($1, $2,
			COALESCE($3::timestamptz, now()),
			COALESCE($3::timestamptz, now()) + $4::bigint * interval '1 millisecond')
		ON CONFLICT (name) DO UPDATE
		SET holder = EXCLUDED.holder,
			acquired_at = EXCLUDED.acquired_at,
			expires_at = EXCLUDED.expires_at
		WHERE l.expires_at <= EXCLUDED.acquired_at`,
		name, holder, s.clock(), millis(ttl))
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseNamedLock implements jobqueue.LockRepository.
func (s *Store) ReleaseNamedLock(ctx context.Context, name string, holder uuid.UUID) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM job_named_locks WHERE name = $1 AND holder = $2`, name, holder); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// ExtendNamedLock implements jobqueue.LockRepository.
func (s *Store) ExtendNamedLock(ctx context.Context, name string, holder uuid.UUID, d time.Duration) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE job_named_locks
		SET expires_at = COALESCE($3::timestamptz, now()) + $4::bigint * interval '1 millisecond'
		WHERE name = $1 AND holder = $2`,
		name, holder, s.clock(), millis(d))
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", name, jobqueue.ErrNamedLockLost)
	}
	return nil
}

// ListNamedLocks implements jobqueue.LockRepository.
func (s *Store) ListNamedLocks(ctx context.Context) ([]jobqueue.NamedLock, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, holder, acquired_at, expires_at FROM job_named_locks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	locks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (jobqueue.NamedLock, error) {
		var l jobqueue.NamedLock
		err := row.Scan(&l.Name, &l.Holder, &l.AcquiredAt, &l.ExpiresAt)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	return locks, nil
}

// RegisterWorker implements jobqueue.ClusterRepository.
func (s *Store) RegisterWorker(ctx context.Context, info jobqueue.WorkerInfo) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO job_workers (worker_id, host, pid, port, started_at, heartbeat_at)
		VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()), COALESCE($5::timestamptz, now()))
		RETURNING id`,
		info.WorkerID, info.Host, info.PID, info.Port, s.clock(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("register worker: %w", err)
	}
	return id, nil
}

// Heartbeat implements jobqueue.ClusterRepository.
func (s *Store) Heartbeat(ctx context.Context, registrationID int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE job_workers SET heartbeat_at = COALESCE($2::timestamptz, now()) WHERE id = $1`,
		registrationID, s.clock())
	if err != nil {
		return fmt.Errorf("heartbeat %d: %w", registrationID, err)
	}
	if tag.RowsAffected() == 0 {
		return jobqueue.ErrWorkerNotFound
	}
	return nil
}

// Deregister implements jobqueue.ClusterRepository.
func (s *Store) Deregister(ctx context.Context, registrationID int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM job_workers WHERE id = $1`, registrationID); err != nil {
		return fmt.Errorf("deregister %d: %w", registrationID, err)
	}
	return nil
}

// ListWorkers implements jobqueue.ClusterRepository.
func (s *Store) ListWorkers(ctx context.Context) ([]jobqueue.WorkerRegistration, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, worker_id, host, pid, port, started_at, heartbeat_at
		FROM job_workers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	workers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (jobqueue.WorkerRegistration, error) {
		var w jobqueue.WorkerRegistration
		err := row.Scan(&w.ID, &w.WorkerID, &w.Host, &w.PID, &w.Port, &w.StartedAt, &w.HeartbeatAt)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return workers, nil
}

// PruneWorkers implements jobqueue.ClusterRepository.
func (s *Store) PruneWorkers(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM job_workers
		WHERE heartbeat_at < COALESCE($1::timestamptz, now()) - $2::bigint * interval '1 millisecond'`,
		s.clock(), millis(olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune workers: %w", err)
	}
	return tag.RowsAffected(), nil
}
