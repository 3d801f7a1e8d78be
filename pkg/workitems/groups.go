package workitems

import (
	"strconv"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/validator"
)

const (
	WorkGroupCacherPolling          jobqueue.WorkType = "group_cacher_polling"
	WorkGroupRefresh                jobqueue.WorkType = "group_refresh"
	WorkGroupDelegateChange         jobqueue.WorkType = "group_delegate_change"
	WorkGroupAttendeeReconciliation jobqueue.WorkType = "group_attendee_reconciliation"
)

// GroupCacherPolling walks the directory and enqueues a GroupRefresh for
// every group whose membership may have changed.
type GroupCacherPolling struct{}

func (*GroupCacherPolling) WorkType() jobqueue.WorkType { return WorkGroupCacherPolling }

func (*GroupCacherPolling) Validate() error { return nil }

// GroupRefresh re-expands one group and updates every event it attends.
type GroupRefresh struct {
	GroupUID string `json:"group_uid" db:"group_uid"`
}

func (*GroupRefresh) WorkType() jobqueue.WorkType { return WorkGroupRefresh }

func (p *GroupRefresh) LockKey() string { return "group:" + p.GroupUID }

func (p *GroupRefresh) Validate() error {
	return validator.Apply(
		validator.RequiredString("group_uid", p.GroupUID),
		validator.MaxLenString("group_uid", p.GroupUID, 255),
	)
}

// GroupDelegateChange recomputes delegate access after a delegator's
// read or write groups changed.
type GroupDelegateChange struct {
	DelegatorUID string `json:"delegator_uid" db:"delegator_uid"`
	ReadOnly     bool   `json:"read_only" db:"read_only"`
}

func (*GroupDelegateChange) WorkType() jobqueue.WorkType { return WorkGroupDelegateChange }

func (p *GroupDelegateChange) LockKey() string { return "delegate:" + p.DelegatorUID }

func (p *GroupDelegateChange) Validate() error {
	return validator.Apply(
		validator.RequiredString("delegator_uid", p.DelegatorUID),
	)
}

// GroupAttendeeReconciliation brings one event's expanded attendee list in
// line with the current membership of a group attending it.
type GroupAttendeeReconciliation struct {
	ResourceID int64 `json:"resource_id" db:"resource_id"`
	GroupID    int64 `json:"group_id" db:"group_id"`
}

func (*GroupAttendeeReconciliation) WorkType() jobqueue.WorkType {
	return WorkGroupAttendeeReconciliation
}

func (p *GroupAttendeeReconciliation) LockKey() string {
	return "reconcile:" + strconv.FormatInt(p.ResourceID, 10)
}

func (p *GroupAttendeeReconciliation) Validate() error {
	return validator.Apply(
		validator.PositiveID("resource_id", p.ResourceID),
		validator.PositiveID("group_id", p.GroupID),
	)
}
