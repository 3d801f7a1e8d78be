package jobqueue

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/jobqueue/pkg/backoff"
)

// DefaultLeaseDuration applies to work types that do not declare one.
const DefaultLeaseDuration = 5 * time.Minute

// Policy is the per-work-type scheduling and retry policy.
type Policy struct {
	// Priority and Weight are defaults applied at enqueue time.
	Priority Priority
	Weight   int
	// Delay pushes notBefore into the future by default (debounce).
	Delay time.Duration
	// LeaseDuration bounds how long a claim stays valid without completion.
	LeaseDuration time.Duration
	// Backoff computes notBefore after a retryable failure.
	Backoff backoff.Strategy
	// MaxAttempts turns the n-th failure into a terminal one; 0 retries forever.
	MaxAttempts int
}

func (p Policy) withDefaults() Policy {
	if !p.Priority.Valid() {
		p.Priority = PriorityDefault
	}
	if p.LeaseDuration <= 0 {
		p.LeaseDuration = DefaultLeaseDuration
	}
	if p.Backoff == nil {
		p.Backoff = backoff.Default()
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	return p
}

// Definition binds a work type to its payload schema, payload table and policy.
type Definition struct {
	WorkType WorkType
	// Table names the payload table in relational stores.
	Table  string
	Policy Policy

	newPayload func() Payload
}

// NewPayload returns an empty payload of the definition's concrete type.
func (d Definition) NewPayload() Payload {
	return d.newPayload()
}

// Registry is the closed set of work types known to a process. Producers,
// workers and stores must share the same registrations.
type Registry struct {
	mu   sync.RWMutex
	defs map[WorkType]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[WorkType]Definition)}
}

// Register adds the payload type P (a pointer to T) under the work type it
// reports. table is the name of its payload table.
func Register[T any, P interface {
	*T
	Payload
}](r *Registry, table string, policy Policy) error {
	if r == nil {
		return ErrRegistryNil
	}

	wt := P(new(T)).WorkType()
	if wt == "" {
		return fmt.Errorf("%w: empty work type for %T", ErrUnknownWorkType, P(nil))
	}
	if table == "" {
		return fmt.Errorf("register %s: empty payload table", wt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[wt]; exists {
		return fmt.Errorf("%w: %s", ErrWorkTypeRegistered, wt)
	}

	r.defs[wt] = Definition{
		WorkType:   wt,
		Table:      table,
		Policy:     policy.withDefaults(),
		newPayload: func() Payload { return P(new(T)) },
	}
	return nil
}

// MustRegister is Register that panics, for static registration tables.
func MustRegister[T any, P interface {
	*T
	Payload
}](r *Registry, table string, policy Policy) {
	if err := Register[T, P](r, table, policy); err != nil {
		panic(err)
	}
}

// Lookup returns the definition of wt.
func (r *Registry) Lookup(wt WorkType) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[wt]
	return d, ok
}

// MustLookup returns the definition of wt or ErrUnknownWorkType.
func (r *Registry) MustLookup(wt WorkType) (Definition, error) {
	d, ok := r.Lookup(wt)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownWorkType, wt)
	}
	return d, nil
}

// Definitions returns every definition sorted by work type.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}
	slices.SortFunc(defs, func(a, b Definition) int {
		switch {
		case a.WorkType < b.WorkType:
			return -1
		case a.WorkType > b.WorkType:
			return 1
		}
		return 0
	})
	return defs
}

// WorkTypes returns every registered work type, sorted.
func (r *Registry) WorkTypes() []WorkType {
	defs := r.Definitions()
	out := make([]WorkType, len(defs))
	for i, d := range defs {
		out[i] = d.WorkType
	}
	return out
}

// LeaseDuration returns the lease length for wt, falling back to
// DefaultLeaseDuration for unknown types.
func (r *Registry) LeaseDuration(wt WorkType) time.Duration {
	if d, ok := r.Lookup(wt); ok {
		return d.Policy.LeaseDuration
	}
	return DefaultLeaseDuration
}

// Validate checks that payload belongs to a registered work type and
// satisfies its schema.
func (r *Registry) Validate(payload Payload) (Definition, error) {
	if payload == nil {
		return Definition{}, ErrPayloadNil
	}

	wt := payload.WorkType()
	def, ok := r.Lookup(wt)
	if !ok {
		return Definition{}, &ValidationError{WorkType: wt, Err: ErrUnknownWorkType}
	}

	if reflect.TypeOf(def.NewPayload()) != reflect.TypeOf(payload) {
		return Definition{}, &ValidationError{
			WorkType: wt,
			Err:      fmt.Errorf("payload type %T does not match registered %T", payload, def.NewPayload()),
		}
	}

	if err := payload.Validate(); err != nil {
		return Definition{}, &ValidationError{WorkType: wt, Err: err}
	}
	return def, nil
}

// EncodePayload serializes a payload for stores that keep it as a document.
func EncodePayload(payload Payload) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", payload.WorkType(), err)
	}
	return b, nil
}

// DecodePayload restores a payload serialized by EncodePayload.
func (r *Registry) DecodePayload(wt WorkType, data []byte) (Payload, error) {
	def, err := r.MustLookup(wt)
	if err != nil {
		return nil, err
	}
	p := def.NewPayload()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Join(ErrPayloadDecode, err)
	}
	return p, nil
}
