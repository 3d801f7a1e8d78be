package jobqueue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkType tags an envelope with the payload schema and handler that apply to it.
type WorkType string

func (w WorkType) String() string { return string(w) }

// Priority is the ordered tier an envelope is dequeued from.
// Higher values are more important.
type Priority int8

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2

	PriorityDefault = PriorityMedium
)

// Valid reports whether p is one of the three tiers.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("priority(%d)", int8(p))
}

// ParsePriority converts "high", "medium" or "low" to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium", "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, ErrInvalidPriority
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Tiers returns the priorities a dequeue evaluates, highest first, stopping
// at min.
func Tiers(min Priority) []Priority {
	if !min.Valid() {
		min = PriorityLow
	}
	tiers := make([]Priority, 0, 3)
	for p := PriorityHigh; p >= min; p-- {
		tiers = append(tiers, p)
	}
	return tiers
}

// State is the scheduling state of an envelope at a given instant.
type State string

const (
	StateQueued      State = "queued"
	StateLeased      State = "leased"
	StateReclaimable State = "reclaimable"
)

// Payload is the immutable, type-specific input of one envelope.
// Implementations are pointer types registered with Register.
type Payload interface {
	WorkType() WorkType
	Validate() error
}

// LockKeyer is implemented by payloads whose handlers must not run
// concurrently with other envelopes sharing the same logical target.
type LockKeyer interface {
	LockKey() string
}

// Envelope is the scheduling record of one unit of work.
type Envelope struct {
	ID            int64      `json:"id"`
	WorkType      WorkType   `json:"work_type"`
	Priority      Priority   `json:"priority"`
	Weight        int        `json:"weight"`
	NotBefore     time.Time  `json:"not_before"`
	Paused        bool       `json:"paused"`
	FailureCount  int        `json:"failure_count"`
	LeaseOwner    *uuid.UUID `json:"lease_owner,omitempty"`
	LeaseToken    *uuid.UUID `json:"-"`
	LeasedAt      *time.Time `json:"leased_at,omitempty"`
	LeaseDeadline *time.Time `json:"lease_deadline,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// State classifies the envelope relative to now.
func (e *Envelope) State(now time.Time) State {
	if e.LeaseOwner == nil {
		return StateQueued
	}
	if e.LeaseDeadline != nil && e.LeaseDeadline.Before(now) {
		return StateReclaimable
	}
	return StateLeased
}

// Eligible reports whether a dequeue at now may claim the envelope.
func (e *Envelope) Eligible(now time.Time) bool {
	return !e.Paused && e.LeaseOwner == nil && !e.NotBefore.After(now)
}

// Lease returns the lease currently held on the envelope, if any.
func (e *Envelope) Lease() (Lease, bool) {
	if e.LeaseOwner == nil || e.LeaseToken == nil || e.LeasedAt == nil || e.LeaseDeadline == nil {
		return Lease{}, false
	}
	return Lease{
		EnvelopeID: e.ID,
		Owner:      *e.LeaseOwner,
		Token:      *e.LeaseToken,
		LeasedAt:   *e.LeasedAt,
		Deadline:   *e.LeaseDeadline,
	}, true
}

// Lease is a time-bounded claim by one worker on one envelope. Token is
// unique per claim; outcomes reported with a stale token are rejected.
type Lease struct {
	EnvelopeID int64     `json:"envelope_id"`
	Owner      uuid.UUID `json:"owner"`
	Token      uuid.UUID `json:"token"`
	LeasedAt   time.Time `json:"leased_at"`
	Deadline   time.Time `json:"deadline"`
}

// Job is an envelope joined with its payload.
type Job struct {
	Envelope
	Payload Payload `json:"payload"`
}

// DequeueParams selects which envelopes a worker may claim.
type DequeueParams struct {
	Owner       uuid.UUID
	MinPriority Priority
	Limit       int
	// WorkTypes restricts the claim to the listed types; empty means any.
	WorkTypes []WorkType
}

// WorkerInfo identifies a live worker process.
type WorkerInfo struct {
	WorkerID uuid.UUID `json:"worker_id"`
	Host     string    `json:"host"`
	PID      int       `json:"pid"`
	Port     int       `json:"port"`
}

// WorkerRegistration is the bookkeeping row of a live worker process.
// It never gates dequeue eligibility.
type WorkerRegistration struct {
	ID int64 `json:"id"`
	WorkerInfo
	StartedAt   time.Time `json:"started_at"`
	HeartbeatAt time.Time `json:"heartbeat_at"`
}

// NamedLock is present only while held.
type NamedLock struct {
	Name       string    `json:"name"`
	Holder     uuid.UUID `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// EnvelopeFilter narrows operator listings.
type EnvelopeFilter struct {
	WorkType    WorkType
	State       State
	Paused      *bool
	MinFailures int
	Limit       int
	Offset      int
}

// WorkTypeStats is one row of the per-work-type histogram.
type WorkTypeStats struct {
	WorkType        WorkType   `json:"work_type"`
	Queued          int64      `json:"queued"`
	Leased          int64      `json:"leased"`
	Paused          int64      `json:"paused"`
	MaxFailureCount int        `json:"max_failure_count"`
	OldestNotBefore *time.Time `json:"oldest_not_before,omitempty"`
}
