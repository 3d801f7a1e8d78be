package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/pg"
)

var envelopeFields = []string{
	"id", "work_type", "priority", "weight", "not_before", "paused", "failure_count",
	"lease_owner", "lease_token", "leased_at", "lease_deadline", "created_at",
}

// envelopeColumns renders the envelope column list, optionally qualified.
func envelopeColumns(alias string) string {
	if alias == "" {
		return strings.Join(envelopeFields, ", ")
	}
	cols := make([]string, len(envelopeFields))
	for i, c := range envelopeFields {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanEnvelope(row pgx.Row) (jobqueue.Envelope, error) {
	var (
		env      jobqueue.Envelope
		wt       string
		priority int16
	)
	err := row.Scan(
		&env.ID, &wt, &priority, &env.Weight, &env.NotBefore, &env.Paused, &env.FailureCount,
		&env.LeaseOwner, &env.LeaseToken, &env.LeasedAt, &env.LeaseDeadline, &env.CreatedAt,
	)
	env.WorkType = jobqueue.WorkType(wt)
	env.Priority = jobqueue.Priority(priority)
	return env, err
}

func collectEnvelopes(rows pgx.Rows) ([]jobqueue.Envelope, error) {
	defer rows.Close()

	out := make([]jobqueue.Envelope, 0)
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, rows.Err()
}

// CreateEnvelope implements jobqueue.EnqueuerRepository.
func (s *Store) CreateEnvelope(ctx context.Context, env *jobqueue.Envelope, payload jobqueue.Payload) (int64, error) {
	if env == nil || payload == nil {
		return 0, jobqueue.ErrPayloadNil
	}
	def, err := s.registry.MustLookup(env.WorkType)
	if err != nil {
		return 0, err
	}

	var createdAt, notBefore any = s.clock(), nil
	if !env.CreatedAt.IsZero() {
		createdAt = env.CreatedAt
	}
	if !env.NotBefore.IsZero() {
		notBefore = env.NotBefore
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO job_envelopes (work_type, priority, weight, not_before, paused, created_at)
			VALUES ($1, $2, $3,
				COALESCE($4::timestamptz, $6::timestamptz, now()), $5,
				COALESCE($6::timestamptz, now()))
			RETURNING id, created_at, not_before`,
			string(env.WorkType), int16(env.Priority), env.Weight, notBefore, env.Paused, createdAt,
		).Scan(&env.ID, &env.CreatedAt, &env.NotBefore)
		if err != nil {
			return fmt.Errorf("insert envelope: %w", err)
		}
		return s.insertPayload(ctx, tx, def, env.ID, payload)
	})
	if err != nil {
		return 0, err
	}
	return env.ID, nil
}

// Peek implements jobqueue.EnvelopeRepository.
func (s *Store) Peek(ctx context.Context, id int64) (*jobqueue.Job, error) {
	env, err := scanEnvelope(s.db.QueryRow(ctx,
		`SELECT `+envelopeColumns("")+` FROM job_envelopes WHERE id = $1`, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, jobqueue.ErrEnvelopeNotFound
		}
		return nil, fmt.Errorf("peek envelope %d: %w", id, err)
	}

	job := &jobqueue.Job{Envelope: env}
	if err := s.attachPayloads(ctx, s.db, []*jobqueue.Job{job}); err != nil {
		return nil, err
	}
	return job, nil
}

// Delete implements jobqueue.EnvelopeRepository. The payload row goes with
// the envelope through ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM job_envelopes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete envelope %d: %w", id, err)
	}
	return nil
}

// UpdateForRetry implements jobqueue.EnvelopeRepository.
func (s *Store) UpdateForRetry(ctx context.Context, id int64, notBefore time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE job_envelopes
		SET failure_count = failure_count + 1, not_before = $2,
			lease_owner = NULL, lease_token = NULL, leased_at = NULL, lease_deadline = NULL
		WHERE id = $1`, id, notBefore)
	if err != nil {
		return fmt.Errorf("retry envelope %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return jobqueue.ErrEnvelopeNotFound
	}
	return nil
}

// ListEnvelopes implements jobqueue.EnvelopeRepository.
func (s *Store) ListEnvelopes(ctx context.Context, filter jobqueue.EnvelopeFilter) ([]jobqueue.Envelope, error) {
	var args []any
	where := []string{"TRUE"}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	switch filter.State {
	case "":
	case jobqueue.StateQueued:
		where = append(where, "lease_owner IS NULL")
	case jobqueue.StateLeased:
		add("lease_owner IS NOT NULL AND lease_deadline >= COALESCE($%d::timestamptz, now())", s.clock())
	case jobqueue.StateReclaimable:
		add("lease_owner IS NOT NULL AND lease_deadline < COALESCE($%d::timestamptz, now())", s.clock())
	default:
		return nil, fmt.Errorf("unknown envelope state %q", filter.State)
	}
	if filter.WorkType != "" {
		add("work_type = $%d", string(filter.WorkType))
	}
	if filter.Paused != nil {
		add("paused = $%d", *filter.Paused)
	}
	if filter.MinFailures > 0 {
		add("failure_count >= $%d", filter.MinFailures)
	}

	query := `SELECT ` + envelopeColumns("") + ` FROM job_envelopes WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	return collectEnvelopes(rows)
}

// SetPaused implements jobqueue.EnvelopeRepository.
func (s *Store) SetPaused(ctx context.Context, id int64, paused bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE job_envelopes SET paused = $2 WHERE id = $1`, id, paused)
	if err != nil {
		return fmt.Errorf("pause envelope %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return jobqueue.ErrEnvelopeNotFound
	}
	return nil
}

// SetPausedByWorkType implements jobqueue.EnvelopeRepository.
func (s *Store) SetPausedByWorkType(ctx context.Context, wt jobqueue.WorkType, paused bool) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE job_envelopes SET paused = $2 WHERE work_type = $1 AND paused <> $2`, string(wt), paused)
	if err != nil {
		return 0, fmt.Errorf("pause %s: %w", wt, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByWorkType implements jobqueue.EnvelopeRepository.
func (s *Store) DeleteByWorkType(ctx context.Context, wt jobqueue.WorkType) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM job_envelopes WHERE work_type = $1`, string(wt))
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", wt, err)
	}
	return tag.RowsAffected(), nil
}

// CountQueued implements jobqueue.EnvelopeRepository.
func (s *Store) CountQueued(ctx context.Context, wt jobqueue.WorkType) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM job_envelopes WHERE work_type = $1 AND lease_owner IS NULL`, string(wt),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", wt, err)
	}
	return n, nil
}

// Histogram implements jobqueue.EnvelopeRepository.
func (s *Store) Histogram(ctx context.Context) ([]jobqueue.WorkTypeStats, error) {
	rows, err := s.db.Query(ctx, `
		SELECT work_type,
			count(*) FILTER (WHERE lease_owner IS NULL),
			count(*) FILTER (WHERE lease_owner IS NOT NULL),
			count(*) FILTER (WHERE paused),
			max(failure_count),
			min(not_before)
		FROM job_envelopes
		GROUP BY work_type
		ORDER BY work_type`)
	if err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}
	defer rows.Close()

	out := make([]jobqueue.WorkTypeStats, 0)
	for rows.Next() {
		var (
			st jobqueue.WorkTypeStats
			wt string
		)
		if err := rows.Scan(&wt, &st.Queued, &st.Leased, &st.Paused, &st.MaxFailureCount, &st.OldestNotBefore); err != nil {
			return nil, fmt.Errorf("histogram: %w", err)
		}
		st.WorkType = jobqueue.WorkType(wt)
		out = append(out, st)
	}
	return out, rows.Err()
}
