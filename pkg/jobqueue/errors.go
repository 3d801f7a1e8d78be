package jobqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrRegistryNil is returned when a nil registry is provided.
	ErrRegistryNil = errors.New("registry cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("invalid work item")

	// ErrUnknownWorkType is returned for work types missing from the registry.
	ErrUnknownWorkType = errors.New("unknown work type")

	// ErrWorkTypeRegistered is returned when a work type is registered twice.
	ErrWorkTypeRegistered = errors.New("work type already registered")

	// ErrInvalidPriority is returned for priorities outside high/medium/low.
	ErrInvalidPriority = errors.New("priority must be high, medium or low")

	// ErrEnvelopeNotFound is returned when an envelope id does not exist.
	ErrEnvelopeNotFound = errors.New("envelope not found")

	// ErrLeaseLost is returned when an outcome is reported with a lease token
	// that no longer matches the envelope, because the lease expired and was
	// reclaimed, or the envelope was deleted. The store is left unchanged.
	ErrLeaseLost = errors.New("lease no longer held")

	// ErrNamedLockLost is returned when extending a named lock that expired
	// and was taken over, or was released.
	ErrNamedLockLost = errors.New("named lock no longer held")

	// ErrWorkerNotFound is returned when a registration id does not exist.
	ErrWorkerNotFound = errors.New("worker registration not found")

	// ErrNoHandlers is returned when a worker starts with no handlers.
	ErrNoHandlers = errors.New("no work handlers registered")

	// ErrHandlerNotFound is returned when no handler is registered for a work type.
	ErrHandlerNotFound = errors.New("no handler registered for work type")

	// ErrTerminal marks a handler error as not worth retrying.
	ErrTerminal = errors.New("terminal failure")

	// ErrAlreadyStarted is returned by Start on a running component.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted is returned by Stop on an idle component.
	ErrNotStarted = errors.New("not started")

	// ErrSchedulerNotConfigured is returned when the scheduler has no periodic work.
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered work")

	// ErrPayloadDecode is returned when a stored payload cannot be decoded.
	ErrPayloadDecode = errors.New("failed to decode stored payload")

	// ErrInvalidPolicy is returned for malformed policy files.
	ErrInvalidPolicy = errors.New("invalid work type policy")
)

// ValidationError rejects an enqueue synchronously: the work type is unknown
// or the payload violates its schema. Nothing is persisted.
type ValidationError struct {
	WorkType WorkType
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s work item: %v", e.WorkType, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IsValidationError reports whether err rejects an enqueue.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// Terminal marks err so the worker reports a terminal failure instead of
// scheduling a retry.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrTerminal, err)
}

// IsTerminal reports whether a handler asked not to be retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTerminal)
}
