package workitems

import (
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/validator"
)

const (
	WorkScheduleOrganizer     jobqueue.WorkType = "schedule_organizer"
	WorkScheduleOrganizerSend jobqueue.WorkType = "schedule_organizer_send"
	WorkScheduleReply         jobqueue.WorkType = "schedule_reply"
	WorkScheduleReplyCancel   jobqueue.WorkType = "schedule_reply_cancel"
	WorkScheduleRefresh       jobqueue.WorkType = "schedule_refresh"
	WorkScheduleAutoReply     jobqueue.WorkType = "schedule_auto_reply"
)

// Organizer actions.
const (
	ActionCreate = "create"
	ActionModify = "modify"
	ActionRemove = "remove"
)

// Participation statuses an auto-accept resource may reply with.
const (
	PartstatAccepted    = "ACCEPTED"
	PartstatDeclined    = "DECLINED"
	PartstatTentative   = "TENTATIVE"
	PartstatNeedsAction = "NEEDS-ACTION"
)

// scheduleLock serializes all scheduling work for one iCalendar UID.
func scheduleLock(uid string) string {
	return "schedule:" + uid
}

// ScheduleOrganizer processes an organizer's change to a scheduled event and
// fans out iTIP requests or cancels. The old and new calendar texts are
// captured at enqueue time so the diff does not depend on later edits.
type ScheduleOrganizer struct {
	ICalendarUID     string `json:"icalendar_uid" db:"icalendar_uid"`
	Action           string `json:"action" db:"schedule_action"`
	HomeResourceID   int64  `json:"home_resource_id" db:"home_resource_id"`
	ResourceID       *int64 `json:"resource_id,omitempty" db:"resource_id"`
	ICalendarTextOld string `json:"icalendar_text_old,omitempty" db:"icalendar_text_old"`
	ICalendarTextNew string `json:"icalendar_text_new,omitempty" db:"icalendar_text_new"`
	AttendeeCount    int32  `json:"attendee_count" db:"attendee_count"`
	SmartMerge       bool   `json:"smart_merge" db:"smart_merge"`
}

func (*ScheduleOrganizer) WorkType() jobqueue.WorkType { return WorkScheduleOrganizer }

func (p *ScheduleOrganizer) LockKey() string { return scheduleLock(p.ICalendarUID) }

// Validate enforces the per-action shape: a create has no resource and no
// old text, a remove has no new text.
func (p *ScheduleOrganizer) Validate() error {
	return validator.Apply(
		validator.RequiredString("icalendar_uid", p.ICalendarUID),
		validator.MaxLenString("icalendar_uid", p.ICalendarUID, 255),
		validator.OneOf("action", p.Action, ActionCreate, ActionModify, ActionRemove),
		validator.PositiveID("home_resource_id", p.HomeResourceID),
		validator.MinNum("attendee_count", p.AttendeeCount, 0),
		validator.When(p.Action == ActionCreate,
			validator.Empty("resource_id", p.ResourceID),
			validator.Empty("icalendar_text_old", p.ICalendarTextOld),
			validator.ICalendarText("icalendar_text_new", p.ICalendarTextNew),
		),
		validator.When(p.Action == ActionModify,
			validator.ICalendarText("icalendar_text_old", p.ICalendarTextOld),
			validator.ICalendarText("icalendar_text_new", p.ICalendarTextNew),
		),
		validator.When(p.Action == ActionRemove,
			validator.ICalendarText("icalendar_text_old", p.ICalendarTextOld),
			validator.Empty("icalendar_text_new", p.ICalendarTextNew),
		),
	)
}

// ScheduleOrganizerSend delivers one iTIP message produced by organizer
// processing to a single attendee.
type ScheduleOrganizerSend struct {
	ICalendarUID   string `json:"icalendar_uid" db:"icalendar_uid"`
	Action         string `json:"action" db:"schedule_action"`
	HomeResourceID int64  `json:"home_resource_id" db:"home_resource_id"`
	ResourceID     *int64 `json:"resource_id,omitempty" db:"resource_id"`
	Attendee       string `json:"attendee" db:"attendee"`
	ITIPMessage    string `json:"itip_message" db:"itip_message"`
	NoRefresh      bool   `json:"no_refresh" db:"no_refresh"`
}

func (*ScheduleOrganizerSend) WorkType() jobqueue.WorkType { return WorkScheduleOrganizerSend }

func (p *ScheduleOrganizerSend) LockKey() string { return scheduleLock(p.ICalendarUID) }

func (p *ScheduleOrganizerSend) Validate() error {
	return validator.Apply(
		validator.RequiredString("icalendar_uid", p.ICalendarUID),
		validator.OneOf("action", p.Action, ActionCreate, ActionModify, ActionRemove),
		validator.PositiveID("home_resource_id", p.HomeResourceID),
		validator.CalendarUserAddress("attendee", p.Attendee),
		validator.ICalendarText("itip_message", p.ITIPMessage),
	)
}

// ScheduleReply sends an attendee's iTIP reply after a partstat change.
// ChangedRIDs is the comma separated list of changed recurrence ids; an
// empty element stands for the master instance.
type ScheduleReply struct {
	ICalendarUID   string `json:"icalendar_uid" db:"icalendar_uid"`
	HomeResourceID int64  `json:"home_resource_id" db:"home_resource_id"`
	ResourceID     int64  `json:"resource_id" db:"resource_id"`
	ChangedRIDs    string `json:"changed_rids,omitempty" db:"changed_rids"`
}

func (*ScheduleReply) WorkType() jobqueue.WorkType { return WorkScheduleReply }

func (p *ScheduleReply) LockKey() string { return scheduleLock(p.ICalendarUID) }

func (p *ScheduleReply) Validate() error {
	return validator.Apply(
		validator.RequiredString("icalendar_uid", p.ICalendarUID),
		validator.PositiveID("home_resource_id", p.HomeResourceID),
		validator.PositiveID("resource_id", p.ResourceID),
	)
}

// ScheduleReplyCancel sends a decline for an event the attendee deleted.
// The resource is already gone, so the calendar text travels with the work.
type ScheduleReplyCancel struct {
	ICalendarUID   string `json:"icalendar_uid" db:"icalendar_uid"`
	HomeResourceID int64  `json:"home_resource_id" db:"home_resource_id"`
	ICalendarText  string `json:"icalendar_text" db:"icalendar_text"`
}

func (*ScheduleReplyCancel) WorkType() jobqueue.WorkType { return WorkScheduleReplyCancel }

func (p *ScheduleReplyCancel) LockKey() string { return scheduleLock(p.ICalendarUID) }

func (p *ScheduleReplyCancel) Validate() error {
	return validator.Apply(
		validator.RequiredString("icalendar_uid", p.ICalendarUID),
		validator.PositiveID("home_resource_id", p.HomeResourceID),
		validator.ICalendarText("icalendar_text", p.ICalendarText),
	)
}

// ScheduleRefresh pushes the organizer's copy to attendees in batches after
// one of them replied. Several refreshes for the same event coalesce when
// the handler runs.
type ScheduleRefresh struct {
	ICalendarUID   string `json:"icalendar_uid" db:"icalendar_uid"`
	HomeResourceID int64  `json:"home_resource_id" db:"home_resource_id"`
	ResourceID     int64  `json:"resource_id" db:"resource_id"`
	AttendeeCount  int32  `json:"attendee_count" db:"attendee_count"`
}

func (*ScheduleRefresh) WorkType() jobqueue.WorkType { return WorkScheduleRefresh }

func (p *ScheduleRefresh) LockKey() string { return scheduleLock(p.ICalendarUID) }

func (p *ScheduleRefresh) Validate() error {
	return validator.Apply(
		validator.RequiredString("icalendar_uid", p.ICalendarUID),
		validator.PositiveID("home_resource_id", p.HomeResourceID),
		validator.PositiveID("resource_id", p.ResourceID),
		validator.MinNum("attendee_count", p.AttendeeCount, 0),
	)
}

// ScheduleAutoReply sends the reply of an auto-accept resource once its
// calendar data has been written.
type ScheduleAutoReply struct {
	ICalendarUID   string `json:"icalendar_uid" db:"icalendar_uid"`
	HomeResourceID int64  `json:"home_resource_id" db:"home_resource_id"`
	ResourceID     int64  `json:"resource_id" db:"resource_id"`
	Partstat       string `json:"partstat" db:"partstat"`
}

func (*ScheduleAutoReply) WorkType() jobqueue.WorkType { return WorkScheduleAutoReply }

func (p *ScheduleAutoReply) LockKey() string { return scheduleLock(p.ICalendarUID) }

func (p *ScheduleAutoReply) Validate() error {
	return validator.Apply(
		validator.RequiredString("icalendar_uid", p.ICalendarUID),
		validator.PositiveID("home_resource_id", p.HomeResourceID),
		validator.PositiveID("resource_id", p.ResourceID),
		validator.OneOf("partstat", p.Partstat,
			PartstatAccepted, PartstatDeclined, PartstatTentative, PartstatNeedsAction),
	)
}
