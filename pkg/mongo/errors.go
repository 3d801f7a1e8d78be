package mongo

import "errors"

var (
	ErrEmptyConnectionURL     = errors.New("empty mongo connection URL")
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
	ErrArchiveFailure         = errors.New("failed to archive work item failure")
	ErrListFailures           = errors.New("failed to list archived failures")
	ErrCreateIndexes          = errors.New("failed to create failure archive indexes")
)
