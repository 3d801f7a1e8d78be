package pgstore

import "errors"

var (
	ErrDBNil          = errors.New("pgstore: db cannot be nil")
	ErrPayloadMissing = errors.New("pgstore: payload row missing for envelope")
	ErrPayloadMapping = errors.New("pgstore: payload type cannot be mapped to a table")
)
