package workitems

import (
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/validator"
)

const WorkPushNotification jobqueue.WorkType = "push_notification"

// PushNotification tells subscribed clients that a collection changed.
// Pushes for the same id are coalesced by the handler, and the lock keeps
// two of them from being sent at once.
type PushNotification struct {
	PushID       string `json:"push_id" db:"push_id"`
	PushPriority string `json:"push_priority" db:"push_priority"`
}

func (*PushNotification) WorkType() jobqueue.WorkType { return WorkPushNotification }

func (p *PushNotification) LockKey() string { return "push:" + p.PushID }

func (p *PushNotification) Validate() error {
	return validator.Apply(
		validator.RequiredString("push_id", p.PushID),
		validator.MaxLenString("push_id", p.PushID, 255),
		validator.OneOf("push_priority", p.PushPriority, "high", "medium", "low"),
	)
}
