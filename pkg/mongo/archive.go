package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

// FailureArchive keeps terminal work item failures in a MongoDB collection.
// It implements jobqueue.FailureRecorder.
type FailureArchive struct {
	coll *mongo.Collection
}

var _ jobqueue.FailureRecorder = (*FailureArchive)(nil)

// NewFailureArchive wraps an existing collection.
func NewFailureArchive(coll *mongo.Collection) *FailureArchive {
	return &FailureArchive{coll: coll}
}

// failureDocument stores the payload as a nested document so it stays
// queryable from the mongo shell.
type failureDocument struct {
	EnvelopeID   int64     `bson:"envelope_id"`
	WorkType     string    `bson:"work_type"`
	Priority     string    `bson:"priority"`
	FailureCount int       `bson:"failure_count"`
	Reason       string    `bson:"reason"`
	Payload      bson.M    `bson:"payload,omitempty"`
	LeaseOwner   string    `bson:"lease_owner,omitempty"`
	EnqueuedAt   time.Time `bson:"enqueued_at"`
	FailedAt     time.Time `bson:"failed_at"`
}

func toDocument(rec jobqueue.FailureRecord) (failureDocument, error) {
	doc := failureDocument{
		EnvelopeID:   rec.EnvelopeID,
		WorkType:     string(rec.WorkType),
		Priority:     rec.Priority.String(),
		FailureCount: rec.FailureCount,
		Reason:       rec.Reason,
		EnqueuedAt:   rec.EnqueuedAt.UTC(),
		FailedAt:     rec.FailedAt.UTC(),
	}
	if rec.LeaseOwner != uuid.Nil {
		doc.LeaseOwner = rec.LeaseOwner.String()
	}
	if len(rec.Payload) > 0 {
		if err := bson.UnmarshalExtJSON(rec.Payload, false, &doc.Payload); err != nil {
			return failureDocument{}, err
		}
	}
	return doc, nil
}

func (d failureDocument) record() (jobqueue.FailureRecord, error) {
	rec := jobqueue.FailureRecord{
		EnvelopeID:   d.EnvelopeID,
		WorkType:     jobqueue.WorkType(d.WorkType),
		FailureCount: d.FailureCount,
		Reason:       d.Reason,
		EnqueuedAt:   d.EnqueuedAt,
		FailedAt:     d.FailedAt,
	}
	p, err := jobqueue.ParsePriority(d.Priority)
	if err != nil {
		return rec, err
	}
	rec.Priority = p
	if d.LeaseOwner != "" {
		if rec.LeaseOwner, err = uuid.Parse(d.LeaseOwner); err != nil {
			return rec, err
		}
	}
	if d.Payload != nil {
		b, err := bson.MarshalExtJSON(d.Payload, false, false)
		if err != nil {
			return rec, err
		}
		rec.Payload = b
	}
	return rec, nil
}

// RecordFailure inserts one document per terminal failure.
func (a *FailureArchive) RecordFailure(ctx context.Context, rec jobqueue.FailureRecord) error {
	doc, err := toDocument(rec)
	if err != nil {
		return errors.Join(ErrArchiveFailure, err)
	}
	if _, err := a.coll.InsertOne(ctx, doc); err != nil {
		return errors.Join(ErrArchiveFailure, err)
	}
	return nil
}

// Recent returns the newest failures first. An empty wt matches every work
// type; limit <= 0 defaults to 100.
func (a *FailureArchive) Recent(ctx context.Context, wt jobqueue.WorkType, limit int64) ([]jobqueue.FailureRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	filter := bson.D{}
	if wt != "" {
		filter = bson.D{{Key: "work_type", Value: string(wt)}}
	}

	cur, err := a.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "failed_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, errors.Join(ErrListFailures, err)
	}
	var docs []failureDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Join(ErrListFailures, err)
	}

	out := make([]jobqueue.FailureRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, errors.Join(ErrListFailures, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// EnsureIndexes creates the lookup index and, when ttl > 0, a TTL index on
// failed_at.
func (a *FailureArchive) EnsureIndexes(ctx context.Context, ttl time.Duration) error {
	models := []mongo.IndexModel{{
		Keys: bson.D{{Key: "work_type", Value: 1}, {Key: "failed_at", Value: -1}},
	}}
	if ttl > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "failed_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl / time.Second)),
		})
	}
	if _, err := a.coll.Indexes().CreateMany(ctx, models); err != nil {
		return errors.Join(ErrCreateIndexes, err)
	}
	return nil
}
