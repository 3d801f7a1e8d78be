package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

type envelopeView struct {
	ID            int64             `json:"id"`
	WorkType      jobqueue.WorkType `json:"work_type"`
	Priority      jobqueue.Priority `json:"priority"`
	Weight        int               `json:"weight"`
	State         jobqueue.State    `json:"state"`
	Paused        bool              `json:"paused"`
	FailureCount  int               `json:"failure_count"`
	NotBefore     time.Time         `json:"not_before"`
	NotBeforeAge  int64             `json:"not_before_age"`
	LeaseOwner    *uuid.UUID        `json:"lease_owner,omitempty"`
	LeasedAt      *time.Time        `json:"leased_at,omitempty"`
	LeaseDeadline *time.Time        `json:"lease_deadline,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type jobView struct {
	envelopeView
	Payload jobqueue.Payload `json:"payload"`
}

func newEnvelopeView(env *jobqueue.Envelope, now time.Time) envelopeView {
	return envelopeView{
		ID:            env.ID,
		WorkType:      env.WorkType,
		Priority:      env.Priority,
		Weight:        env.Weight,
		State:         env.State(now),
		Paused:        env.Paused,
		FailureCount:  env.FailureCount,
		NotBefore:     env.NotBefore,
		NotBeforeAge:  int64(now.Sub(env.NotBefore) / time.Second),
		LeaseOwner:    env.LeaseOwner,
		LeasedAt:      env.LeasedAt,
		LeaseDeadline: env.LeaseDeadline,
		CreatedAt:     env.CreatedAt,
	}
}

type countView struct {
	WorkType jobqueue.WorkType `json:"work_type"`
	Count    int64             `json:"count"`
}

type listView[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newListView[T any](items []T) listView[T] {
	if items == nil {
		items = []T{}
	}
	return listView[T]{Items: items, Total: len(items)}
}
