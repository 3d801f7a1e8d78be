package jobqueue

import (
	"context"
	"fmt"
)

type (
	// Handler executes one work type. A nil error reports success; an error
	// wrapped with Terminal reports a terminal failure; any other error is
	// retried according to the work type's policy.
	Handler interface {
		WorkType() WorkType
		Handle(ctx context.Context, job *Job) error
	}

	// HandlerFunc handles a decoded payload of type P.
	HandlerFunc[P Payload] func(ctx context.Context, payload P) error
)

// NewHandler adapts a typed function to Handler. The work type comes from
// the payload type.
func NewHandler[T any, P interface {
	*T
	Payload
}](fn HandlerFunc[P]) Handler {
	return &typedHandler[T, P]{
		workType: P(new(T)).WorkType(),
		fn:       fn,
	}
}

type typedHandler[T any, P interface {
	*T
	Payload
}] struct {
	workType WorkType
	fn       HandlerFunc[P]
}

func (h *typedHandler[T, P]) WorkType() WorkType {
	return h.workType
}

func (h *typedHandler[T, P]) Handle(ctx context.Context, job *Job) error {
	payload, ok := job.Payload.(P)
	if !ok {
		return Terminal(fmt.Errorf("%w: %T for %s", ErrPayloadDecode, job.Payload, h.workType))
	}
	return h.fn(ctx, payload)
}
