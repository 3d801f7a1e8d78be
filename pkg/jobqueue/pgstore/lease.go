package pgstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/pg"
)

// claimSQL leases up to $3 envelopes of tier $2. Candidates are joined to
// the lease table of claimable work types, so unknown types are never
// handed out. Rows locked by a concurrent claim are skipped.
var claimSQL = `
	WITH lease AS (
		SELECT * FROM unnest($5::text[], $6::bigint[]) AS l(work_type, lease_ms)
	), picked AS (
		SELECT e.id, l.lease_ms
		FROM job_envelopes e
		JOIN lease l ON l.work_type = e.work_type
		WHERE e.priority = $2
			AND NOT e.paused
			AND e.lease_owner IS NULL
			AND e.not_before <= $1
		ORDER BY e.weight DESC, e.id
		LIMIT $3
		FOR UPDATE OF e SKIP LOCKED
	)
	UPDATE job_envelopes e
	SET lease_owner = $4,
		lease_token = gen_random_uuid(),
		leased_at = $1,
		lease_deadline = $1 + p.lease_ms * interval '1 millisecond'
	FROM picked p
	WHERE e.id = p.id
	RETURNING ` + envelopeColumns("e")

// Dequeue implements jobqueue.LeaseRepository.
func (s *Store) Dequeue(ctx context.Context, params jobqueue.DequeueParams) ([]*jobqueue.Job, error) {
	jobs := make([]*jobqueue.Job, 0, max(params.Limit, 0))
	if params.Limit <= 0 {
		return jobs, nil
	}

	types, leases := s.leaseTable(params.WorkTypes)
	if len(types) == 0 {
		return jobs, nil
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		now, err := s.txNow(ctx, tx)
		if err != nil {
			return err
		}

		for _, tier := range jobqueue.Tiers(params.MinPriority) {
			remaining := params.Limit - len(jobs)
			if remaining == 0 {
				break
			}

			rows, err := tx.Query(ctx, claimSQL, now, int16(tier), remaining, params.Owner, types, leases)
			if err != nil {
				return fmt.Errorf("claim %s tier: %w", tier, err)
			}
			claimed, err := collectEnvelopes(rows)
			if err != nil {
				return fmt.Errorf("claim %s tier: %w", tier, err)
			}

			// UPDATE ... RETURNING has no order
			slices.SortFunc(claimed, func(a, b jobqueue.Envelope) int {
				if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
					return c
				}
				return cmp.Compare(a.ID, b.ID)
			})
			for _, env := range claimed {
				jobs = append(jobs, &jobqueue.Job{Envelope: env})
			}
		}

		return s.attachPayloads(ctx, tx, jobs)
	})
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	return jobs, nil
}

// leaseTable returns the claimable work types and their lease lengths in
// milliseconds. An empty filter means every registered type.
func (s *Store) leaseTable(filter []jobqueue.WorkType) ([]string, []int64) {
	if len(filter) == 0 {
		filter = s.registry.WorkTypes()
	}
	types := make([]string, 0, len(filter))
	leases := make([]int64, 0, len(filter))
	for _, wt := range filter {
		def, ok := s.registry.Lookup(wt)
		if !ok {
			continue
		}
		types = append(types, string(wt))
		leases = append(leases, millis(def.Policy.LeaseDuration))
	}
	return types, leases
}

// CompleteLease implements jobqueue.LeaseRepository.
func (s *Store) CompleteLease(ctx context.Context, lease jobqueue.Lease) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM job_envelopes WHERE id = $1 AND lease_token = $2`, lease.EnvelopeID, lease.Token)
	if err != nil {
		return fmt.Errorf("complete envelope %d: %w", lease.EnvelopeID, err)
	}
	return leaseHeld(tag.RowsAffected(), lease)
}

// RetryLease implements jobqueue.LeaseRepository.
func (s *Store) RetryLease(ctx context.Context, lease jobqueue.Lease, notBefore time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE job_envelopes
		SET failure_count = failure_count + 1, not_before = $3,
			lease_owner = NULL, lease_token = NULL, leased_at = NULL, lease_deadline = NULL
		WHERE id = $1 AND lease_token = $2`, lease.EnvelopeID, lease.Token, notBefore)
	if err != nil {
		return fmt.Errorf("retry envelope %d: %w", lease.EnvelopeID, err)
	}
	return leaseHeld(tag.RowsAffected(), lease)
}

// ReleaseLease implements jobqueue.LeaseRepository.
func (s *Store) ReleaseLease(ctx context.Context, lease jobqueue.Lease, notBefore time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE job_envelopes
		SET not_before = $3,
			lease_owner = NULL, lease_token = NULL, leased_at = NULL, lease_deadline = NULL
		WHERE id = $1 AND lease_token = $2`, lease.EnvelopeID, lease.Token, notBefore)
	if err != nil {
		return fmt.Errorf("release envelope %d: %w", lease.EnvelopeID, err)
	}
	return leaseHeld(tag.RowsAffected(), lease)
}

// ExtendLease implements jobqueue.LeaseRepository.
func (s *Store) ExtendLease(ctx context.Context, lease jobqueue.Lease, d time.Duration) (jobqueue.Lease, error) {
	err := s.db.QueryRow(ctx, `
		UPDATE job_envelopes
		SET lease_deadline = COALESCE($3::timestamptz, now()) + $4::bigint * interval '1 millisecond'
		WHERE id = $1 AND lease_token = $2
		RETURNING lease_deadline`,
		lease.EnvelopeID, lease.Token, s.clock(), millis(d),
	).Scan(&lease.Deadline)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return jobqueue.Lease{}, leaseHeld(0, lease)
		}
		return jobqueue.Lease{}, fmt.Errorf("extend envelope %d: %w", lease.EnvelopeID, err)
	}
	return lease, nil
}

func leaseHeld(affected int64, lease jobqueue.Lease) error {
	if affected == 0 {
		return fmt.Errorf("envelope %d: %w", lease.EnvelopeID, jobqueue.ErrLeaseLost)
	}
	return nil
}

// ReclaimExpired implements jobqueue.ReaperRepository. Leases are cleared
// oldest deadline first; failureCount is left alone.
func (s *Store) ReclaimExpired(ctx context.Context, limit int) ([]int64, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.db.Query(ctx, `
		WITH expired AS (
			SELECT id FROM job_envelopes
			WHERE lease_owner IS NOT NULL
				AND lease_deadline < COALESCE($1::timestamptz, now())
			ORDER BY lease_deadline, id
			LIMIT $2::int
			FOR UPDATE SKIP LOCKED
		)
		UPDATE job_envelopes e
		SET lease_owner = NULL, lease_token = NULL, leased_at = NULL, lease_deadline = NULL
		FROM expired x
		WHERE e.id = x.id
		RETURNING e.id`, s.clock(), lim)
	if err != nil {
		return nil, fmt.Errorf("reclaim expired leases: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("reclaim expired leases: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}
