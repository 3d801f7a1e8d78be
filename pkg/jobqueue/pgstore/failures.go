package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

// RecordFailure implements jobqueue.FailureRecorder by appending to
// job_failures. The envelope is already gone, so the row keeps a copy of
// everything an operator needs.
func (s *Store) RecordFailure(ctx context.Context, rec jobqueue.FailureRecord) error {
	var payload any
	if len(rec.Payload) > 0 {
		payload = string(rec.Payload)
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO job_failures
			(envelope_id, work_type, priority, failure_count, reason, payload, lease_owner, enqueued_at, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)`,
		rec.EnvelopeID, string(rec.WorkType), int16(rec.Priority), rec.FailureCount, rec.Reason,
		payload, rec.LeaseOwner, rec.EnqueuedAt, rec.FailedAt)
	if err != nil {
		return fmt.Errorf("record %s failure: %w", rec.WorkType, err)
	}
	return nil
}

// Recent returns recorded failures newest first. An empty wt matches every
// work type; limit <= 0 defaults to 100.
func (s *Store) Recent(ctx context.Context, wt jobqueue.WorkType, limit int64) ([]jobqueue.FailureRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT envelope_id, work_type, priority, failure_count, reason, payload::text,
			lease_owner, enqueued_at, failed_at
		FROM job_failures
		WHERE $1 = '' OR work_type = $1
		ORDER BY failed_at DESC, id DESC
		LIMIT $2`, string(wt), limit)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (jobqueue.FailureRecord, error) {
		var (
			rec      jobqueue.FailureRecord
			wt       string
			priority int16
			payload  *string
			owner    *uuid.UUID
		)
		err := row.Scan(&rec.EnvelopeID, &wt, &priority, &rec.FailureCount, &rec.Reason,
			&payload, &owner, &rec.EnqueuedAt, &rec.FailedAt)
		rec.WorkType = jobqueue.WorkType(wt)
		rec.Priority = jobqueue.Priority(priority)
		if payload != nil {
			rec.Payload = []byte(*payload)
		}
		if owner != nil {
			rec.LeaseOwner = *owner
		}
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	return recs, nil
}
