// Package mongo archives terminal work item failures in MongoDB.
//
// The queue deletes an envelope once it fails terminally. FailureArchive
// implements jobqueue.FailureRecorder and keeps a document per failure, with
// the payload stored as a nested document, so operators can inspect what was
// lost. An optional TTL index expires old documents.
//
// # Usage
//
//	archive, client, err := mongo.NewFailureArchiveFromConfig(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(context.Background())
//
//	worker, err := jobqueue.NewWorker(store, registry,
//		jobqueue.WithFailureRecorder(archive))
//
// Healthcheck returns a probe that plugs into the admin API.
//
// # Error Handling
//
// Driver errors are joined with package sentinels such as
// ErrFailedToConnectToMongo and ErrArchiveFailure; use errors.Is.
package mongo
