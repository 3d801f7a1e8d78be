package jobqueue

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory for tests and local
// development. Claims are conditional updates under a single mutex, so the
// lease protocol behaves as it does against the database.
type MemoryStore struct {
	registry *Registry
	now      func() time.Time

	mu        sync.Mutex
	seq       int64
	envelopes map[int64]*Envelope
	payloads  map[int64][]byte
	workerSeq int64
	workers   map[int64]*WorkerRegistration
	locks     map[string]*NamedLock
	failures  []FailureRecord
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock replaces time.Now, letting tests move time forward.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty store bound to registry.
func NewMemoryStore(registry *Registry, opts ...MemoryStoreOption) (*MemoryStore, error) {
	if registry == nil {
		return nil, ErrRegistryNil
	}
	s := &MemoryStore{
		registry:  registry,
		now:       time.Now,
		envelopes: make(map[int64]*Envelope),
		payloads:  make(map[int64][]byte),
		workers:   make(map[int64]*WorkerRegistration),
		locks:     make(map[string]*NamedLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateEnvelope implements EnqueuerRepository.
func (s *MemoryStore) CreateEnvelope(_ context.Context, env *Envelope, payload Payload) (int64, error) {
	if env == nil || payload == nil {
		return 0, ErrPayloadNil
	}
	if _, err := s.registry.MustLookup(env.WorkType); err != nil {
		return 0, err
	}
	data, err := EncodePayload(payload)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	e := *env
	e.ID = s.seq
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.NotBefore.IsZero() {
		e.NotBefore = e.CreatedAt
	}
	e.LeaseOwner, e.LeaseToken, e.LeasedAt, e.LeaseDeadline = nil, nil, nil, nil
	s.envelopes[e.ID] = &e
	s.payloads[e.ID] = data

	env.ID = e.ID
	env.CreatedAt = e.CreatedAt
	env.NotBefore = e.NotBefore
	return e.ID, nil
}

// Dequeue implements LeaseRepository.
func (s *MemoryStore) Dequeue(_ context.Context, params DequeueParams) ([]*Job, error) {
	if params.Limit <= 0 {
		return []*Job{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	jobs := make([]*Job, 0, params.Limit)

	for _, tier := range Tiers(params.MinPriority) {
		remaining := params.Limit - len(jobs)
		if remaining == 0 {
			break
		}

		candidates := s.candidates(tier, params.WorkTypes, now)
		for _, env := range candidates[:min(remaining, len(candidates))] {
			job, err := s.claim(env, params.Owner, now)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

// candidates returns eligible envelopes of one tier ordered by weight
// descending, then id ascending.
func (s *MemoryStore) candidates(tier Priority, types []WorkType, now time.Time) []*Envelope {
	var out []*Envelope
	for _, env := range s.envelopes {
		if env.Priority != tier || !env.Eligible(now) {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, env.WorkType) {
			continue
		}
		out = append(out, env)
	}
	slices.SortFunc(out, func(a, b *Envelope) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *MemoryStore) claim(env *Envelope, owner uuid.UUID, now time.Time) (*Job, error) {
	payload, err := s.registry.DecodePayload(env.WorkType, s.payloads[env.ID])
	if err != nil {
		return nil, fmt.Errorf("envelope %d: %w", env.ID, err)
	}

	token := uuid.New()
	leasedAt := now
	deadline := now.Add(s.registry.LeaseDuration(env.WorkType))
	env.LeaseOwner = &owner
	env.LeaseToken = &token
	env.LeasedAt = &leasedAt
	env.LeaseDeadline = &deadline

	return &Job{Envelope: copyEnvelope(env), Payload: payload}, nil
}

// leased returns the envelope if lease still holds it. Caller holds s.mu.
func (s *MemoryStore) leased(lease Lease) (*Envelope, error) {
	env, ok := s.envelopes[lease.EnvelopeID]
	if !ok || env.LeaseToken == nil || *env.LeaseToken != lease.Token {
		return nil, fmt.Errorf("envelope %d: %w", lease.EnvelopeID, ErrLeaseLost)
	}
	return env, nil
}

// CompleteLease implements LeaseRepository.
func (s *MemoryStore) CompleteLease(_ context.Context, lease Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.leased(lease); err != nil {
		return err
	}
	s.deleteLocked(lease.EnvelopeID)
	return nil
}

// RetryLease implements LeaseRepository.
func (s *MemoryStore) RetryLease(_ context.Context, lease Lease, notBefore time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.leased(lease)
	if err != nil {
		return err
	}
	env.FailureCount++
	env.NotBefore = notBefore
	clearLease(env)
	return nil
}

// ReleaseLease implements LeaseRepository.
func (s *MemoryStore) ReleaseLease(_ context.Context, lease Lease, notBefore time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.leased(lease)
	if err != nil {
		return err
	}
	env.NotBefore = notBefore
	clearLease(env)
	return nil
}

// ExtendLease implements LeaseRepository.
func (s *MemoryStore) ExtendLease(_ context.Context, lease Lease, d time.Duration) (Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.leased(lease)
	if err != nil {
		return Lease{}, err
	}
	deadline := s.now().Add(d)
	env.LeaseDeadline = &deadline
	lease.Deadline = deadline
	return lease, nil
}

// ReclaimExpired implements ReaperRepository.
func (s *MemoryStore) ReclaimExpired(_ context.Context, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []*Envelope
	for _, env := range s.envelopes {
		if env.State(now) == StateReclaimable {
			expired = append(expired, env)
		}
	}
	slices.SortFunc(expired, func(a, b *Envelope) int {
		if c := a.LeaseDeadline.Compare(*b.LeaseDeadline); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	ids := make([]int64, 0, len(expired))
	for _, env := range expired {
		clearLease(env)
		ids = append(ids, env.ID)
	}
	return ids, nil
}

// Peek implements EnvelopeRepository.
func (s *MemoryStore) Peek(_ context.Context, id int64) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok := s.envelopes[id]
	if !ok {
		return nil, ErrEnvelopeNotFound
	}
	payload, err := s.registry.DecodePayload(env.WorkType, s.payloads[id])
	if err != nil {
		return nil, err
	}
	return &Job{Envelope: copyEnvelope(env), Payload: payload}, nil
}

// Delete implements EnvelopeRepository.
func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(id)
	return nil
}

// UpdateForRetry implements EnvelopeRepository.
func (s *MemoryStore) UpdateForRetry(_ context.Context, id int64, notBefore time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok := s.envelopes[id]
	if !ok {
		return ErrEnvelopeNotFound
	}
	env.FailureCount++
	env.NotBefore = notBefore
	clearLease(env)
	return nil
}

// ListEnvelopes implements EnvelopeRepository.
func (s *MemoryStore) ListEnvelopes(_ context.Context, filter EnvelopeFilter) ([]Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]Envelope, 0)
	for _, env := range s.envelopes {
		if filter.WorkType != "" && env.WorkType != filter.WorkType {
			continue
		}
		if filter.Paused != nil && env.Paused != *filter.Paused {
			continue
		}
		if filter.State != "" && env.State(now) != filter.State {
			continue
		}
		if env.FailureCount < filter.MinFailures {
			continue
		}
		out = append(out, copyEnvelope(env))
	}
	slices.SortFunc(out, func(a, b Envelope) int { return cmp.Compare(a.ID, b.ID) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []Envelope{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// SetPaused implements EnvelopeRepository.
func (s *MemoryStore) SetPaused(_ context.Context, id int64, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok := s.envelopes[id]
	if !ok {
		return ErrEnvelopeNotFound
	}
	env.Paused = paused
	return nil
}

// SetPausedByWorkType implements EnvelopeRepository.
func (s *MemoryStore) SetPausedByWorkType(_ context.Context, wt WorkType, paused bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, env := range s.envelopes {
		if env.WorkType == wt && env.Paused != paused {
			env.Paused = paused
			n++
		}
	}
	return n, nil
}

// DeleteByWorkType implements EnvelopeRepository.
func (s *MemoryStore) DeleteByWorkType(_ context.Context, wt WorkType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, env := range s.envelopes {
		if env.WorkType == wt {
			s.deleteLocked(id)
			n++
		}
	}
	return n, nil
}

// CountQueued implements EnvelopeRepository.
func (s *MemoryStore) CountQueued(_ context.Context, wt WorkType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, env := range s.envelopes {
		if env.WorkType == wt && env.LeaseOwner == nil {
			n++
		}
	}
	return n, nil
}

// Histogram implements EnvelopeRepository.
func (s *MemoryStore) Histogram(_ context.Context) ([]WorkTypeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[WorkType]*WorkTypeStats)
	for _, env := range s.envelopes {
		st, ok := byType[env.WorkType]
		if !ok {
			st = &WorkTypeStats{WorkType: env.WorkType}
			byType[env.WorkType] = st
		}
		if env.LeaseOwner == nil {
			st.Queued++
		} else {
			st.Leased++
		}
		if env.Paused {
			st.Paused++
		}
		st.MaxFailureCount = max(st.MaxFailureCount, env.FailureCount)
		if st.OldestNotBefore == nil || env.NotBefore.Before(*st.OldestNotBefore) {
			nb := env.NotBefore
			st.OldestNotBefore = &nb
		}
	}

	out := make([]WorkTypeStats, 0, len(byType))
	for _, st := range byType {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b WorkTypeStats) int { return cmp.Compare(a.WorkType, b.WorkType) })
	return out, nil
}

// AcquireNamedLock implements LockRepository.
func (s *MemoryStore) AcquireNamedLock(_ context.Context, name string, holder uuid.UUID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if l, ok := s.locks[name]; ok && l.ExpiresAt.After(now) {
		return false, nil
	}
	s.locks[name] = &NamedLock{
		Name:       name,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	return true, nil
}

// ReleaseNamedLock implements LockRepository.
func (s *MemoryStore) ReleaseNamedLock(_ context.Context, name string, holder uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.locks[name]; ok && l.Holder == holder {
		delete(s.locks, name)
	}
	return nil
}

// ExtendNamedLock implements LockRepository.
func (s *MemoryStore) ExtendNamedLock(_ context.Context, name string, holder uuid.UUID, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[name]
	if !ok || l.Holder != holder {
		return fmt.Errorf("%s: %w", name, ErrNamedLockLost)
	}
	l.ExpiresAt = s.now().Add(d)
	return nil
}

// ListNamedLocks implements LockRepository.
func (s *MemoryStore) ListNamedLocks(_ context.Context) ([]NamedLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]NamedLock, 0, len(s.locks))
	for _, l := range s.locks {
		out = append(out, *l)
	}
	slices.SortFunc(out, func(a, b NamedLock) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// RegisterWorker implements ClusterRepository.
func (s *MemoryStore) RegisterWorker(_ context.Context, info WorkerInfo) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.workerSeq++
	s.workers[s.workerSeq] = &WorkerRegistration{
		ID:          s.workerSeq,
		WorkerInfo:  info,
		StartedAt:   now,
		HeartbeatAt: now,
	}
	return s.workerSeq, nil
}

// Heartbeat implements ClusterRepository.
func (s *MemoryStore) Heartbeat(_ context.Context, registrationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[registrationID]
	if !ok {
		return ErrWorkerNotFound
	}
	w.HeartbeatAt = s.now()
	return nil
}

// Deregister implements ClusterRepository.
func (s *MemoryStore) Deregister(_ context.Context, registrationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.workers, registrationID)
	return nil
}

// ListWorkers implements ClusterRepository.
func (s *MemoryStore) ListWorkers(_ context.Context) ([]WorkerRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WorkerRegistration, 0, len(s.workers))
	for _, w := range s.workers {
		out = append(out, *w)
	}
	slices.SortFunc(out, func(a, b WorkerRegistration) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// PruneWorkers implements ClusterRepository.
func (s *MemoryStore) PruneWorkers(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	var n int64
	for id, w := range s.workers {
		if w.HeartbeatAt.Before(cutoff) {
			delete(s.workers, id)
			n++
		}
	}
	return n, nil
}

// RecordFailure implements FailureRecorder, keeping records in memory.
func (s *MemoryStore) RecordFailure(_ context.Context, rec FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, rec)
	return nil
}

// Failures returns the failure records collected so far.
func (s *MemoryStore) Failures() []FailureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.failures)
}

// deleteLocked removes the envelope and its payload together.
func (s *MemoryStore) deleteLocked(id int64) {
	delete(s.envelopes, id)
	delete(s.payloads, id)
}

func clearLease(env *Envelope) {
	env.LeaseOwner = nil
	env.LeaseToken = nil
	env.LeasedAt = nil
	env.LeaseDeadline = nil
}

func copyEnvelope(env *Envelope) Envelope {
	c := *env
	if env.LeaseOwner != nil {
		v := *env.LeaseOwner
		c.LeaseOwner = &v
	}
	if env.LeaseToken != nil {
		v := *env.LeaseToken
		c.LeaseToken = &v
	}
	if env.LeasedAt != nil {
		v := *env.LeasedAt
		c.LeasedAt = &v
	}
	if env.LeaseDeadline != nil {
		v := *env.LeaseDeadline
		c.LeaseDeadline = &v
	}
	return c
}

var _ Store = (*MemoryStore)(nil)
