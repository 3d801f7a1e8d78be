package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

// FailureRecord is emitted once per terminal failure, after the envelope is
// deleted.
type FailureRecord struct {
	EnvelopeID   int64           `json:"envelope_id" bson:"envelope_id"`
	WorkType     WorkType        `json:"work_type" bson:"work_type"`
	Priority     Priority        `json:"priority" bson:"priority"`
	FailureCount int             `json:"failure_count" bson:"failure_count"` // failed attempts, the terminal one included
	Reason       string          `json:"reason" bson:"reason"`
	Payload      json.RawMessage `json:"payload,omitempty" bson:"payload,omitempty"`
	LeaseOwner   uuid.UUID       `json:"lease_owner" bson:"lease_owner"`
	EnqueuedAt   time.Time       `json:"enqueued_at" bson:"enqueued_at"`
	FailedAt     time.Time       `json:"failed_at" bson:"failed_at"`
}

// NewFailureRecord builds the record for job.
func NewFailureRecord(job *Job, reason string, failedAt time.Time) FailureRecord {
	rec := FailureRecord{
		EnvelopeID:   job.ID,
		WorkType:     job.WorkType,
		Priority:     job.Priority,
		FailureCount: job.FailureCount,
		Reason:       reason,
		EnqueuedAt:   job.CreatedAt,
		FailedAt:     failedAt,
	}
	if job.LeaseOwner != nil {
		rec.LeaseOwner = *job.LeaseOwner
	}
	if job.Payload != nil {
		if b, err := json.Marshal(job.Payload); err == nil {
			rec.Payload = b
		}
	}
	return rec
}

// FailureRecorder receives terminal failures for observability.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, rec FailureRecord) error
}

// LogRecorder writes failure records to a structured logger.
type LogRecorder struct {
	Logger *slog.Logger
}

func (r LogRecorder) RecordFailure(ctx context.Context, rec FailureRecord) error {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	log.WarnContext(ctx, "work item failed terminally",
		logger.Component("jobqueue"),
		logger.EnvelopeID(rec.EnvelopeID),
		logger.WorkType(string(rec.WorkType)),
		logger.FailureCount(rec.FailureCount),
		slog.String("reason", rec.Reason),
		slog.Time("enqueued_at", rec.EnqueuedAt))
	return nil
}

// MultiRecorder fans a record out to every recorder and joins their errors.
type MultiRecorder []FailureRecorder

func (m MultiRecorder) RecordFailure(ctx context.Context, rec FailureRecord) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordFailure(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
