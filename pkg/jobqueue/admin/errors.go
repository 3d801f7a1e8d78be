package admin

import "errors"

var (
	ErrRepositoryNil  = errors.New("admin repository cannot be nil")
	ErrInvalidID      = errors.New("invalid envelope id")
	ErrInvalidFilter  = errors.New("invalid query parameters")
	ErrNoFailureStore = errors.New("failure archive not configured")
)
