package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// New creates a new mongo client.
// It returns an error if the client cannot be created.
func New(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for attempt := range attempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime).
				SetRetryWrites(cfg.RetryWrites).
				SetRetryReads(cfg.RetryReads),
		)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(cfg.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-timer.C:
		}
	}

	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

// NewFailureArchiveFromConfig connects and returns the archive bound to the
// configured database and collection, with its indexes in place.
func NewFailureArchiveFromConfig(ctx context.Context, cfg Config) (*FailureArchive, *mongo.Client, error) {
	client, err := New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	archive := NewFailureArchive(client.Database(cfg.Database).Collection(cfg.Collection))
	if err := archive.EnsureIndexes(ctx, cfg.FailureTTL); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return archive, client, nil
}
