package workitems

import (
	"errors"
	"time"

	"github.com/dmitrymomot/jobqueue/pkg/backoff"
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

// Request delays debounce bursts of edits to the same event.
const (
	RequestDelay   = 5 * time.Second
	ReplyDelay     = 1 * time.Second
	AutoReplyDelay = 5 * time.Second
	RefreshDelay   = 60 * time.Second
)

var (
	schedulingBackoff   = backoff.NewExponential(10*time.Second, 15*time.Minute)
	deliveryBackoff     = backoff.NewExponential(30*time.Second, time.Hour)
	housekeepingBackoff = backoff.NewSteps(time.Minute, 5*time.Minute, 30*time.Minute)
)

// Register adds every work type of the server to reg.
func Register(reg *jobqueue.Registry) error {
	return errors.Join(
		// implicit scheduling
		jobqueue.Register[ScheduleOrganizer](reg, "schedule_organizer_work", jobqueue.Policy{
			Priority: jobqueue.PriorityHigh, Delay: RequestDelay,
			LeaseDuration: 10 * time.Minute, Backoff: schedulingBackoff, MaxAttempts: 12,
		}),
		jobqueue.Register[ScheduleOrganizerSend](reg, "schedule_organizer_send_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityHigh,
			LeaseDuration: 5 * time.Minute, Backoff: schedulingBackoff, MaxAttempts: 12,
		}),
		jobqueue.Register[ScheduleReply](reg, "schedule_reply_work", jobqueue.Policy{
			Priority: jobqueue.PriorityHigh, Delay: ReplyDelay,
			LeaseDuration: 5 * time.Minute, Backoff: schedulingBackoff, MaxAttempts: 12,
		}),
		jobqueue.Register[ScheduleReplyCancel](reg, "schedule_reply_cancel_work", jobqueue.Policy{
			Priority: jobqueue.PriorityHigh, Delay: ReplyDelay,
			LeaseDuration: 5 * time.Minute, Backoff: schedulingBackoff, MaxAttempts: 12,
		}),
		jobqueue.Register[ScheduleRefresh](reg, "schedule_refresh_work", jobqueue.Policy{
			Priority: jobqueue.PriorityMedium, Delay: RefreshDelay,
			LeaseDuration: 10 * time.Minute, Backoff: schedulingBackoff, MaxAttempts: 6,
		}),
		jobqueue.Register[ScheduleAutoReply](reg, "schedule_auto_reply_work", jobqueue.Policy{
			Priority: jobqueue.PriorityHigh, Delay: AutoReplyDelay,
			LeaseDuration: 5 * time.Minute, Backoff: schedulingBackoff, MaxAttempts: 12,
		}),

		// email
		jobqueue.Register[IMIPInvitation](reg, "imip_invitation_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityMedium,
			LeaseDuration: 2 * time.Minute, Backoff: deliveryBackoff, MaxAttempts: 24,
		}),
		jobqueue.Register[IMIPReply](reg, "imip_reply_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityMedium,
			LeaseDuration: 2 * time.Minute, Backoff: deliveryBackoff, MaxAttempts: 24,
		}),
		jobqueue.Register[IMIPPolling](reg, "imip_polling_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: 5 * time.Minute, Backoff: backoff.NewConstant(time.Minute), MaxAttempts: 1,
		}),

		jobqueue.Register[PushNotification](reg, "push_notification_work", jobqueue.Policy{
			Priority: jobqueue.PriorityHigh, Weight: 10,
			LeaseDuration: time.Minute, Backoff: backoff.NewConstant(15 * time.Second), MaxAttempts: 5,
		}),

		// directory groups
		jobqueue.Register[GroupCacherPolling](reg, "group_cacher_polling_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: 30 * time.Minute, Backoff: housekeepingBackoff, MaxAttempts: 1,
		}),
		jobqueue.Register[GroupRefresh](reg, "group_refresh_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: 15 * time.Minute, Backoff: housekeepingBackoff, MaxAttempts: 5,
		}),
		jobqueue.Register[GroupDelegateChange](reg, "group_delegate_change_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityMedium,
			LeaseDuration: 5 * time.Minute, Backoff: housekeepingBackoff, MaxAttempts: 5,
		}),
		jobqueue.Register[GroupAttendeeReconciliation](reg, "group_attendee_reconciliation_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityMedium,
			LeaseDuration: 10 * time.Minute, Backoff: schedulingBackoff, MaxAttempts: 8,
		}),

		// housekeeping
		jobqueue.Register[RevisionCleanup](reg, "revision_cleanup_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: time.Hour, Backoff: housekeepingBackoff, MaxAttempts: 1,
		}),
		jobqueue.Register[InboxCleanup](reg, "inbox_cleanup_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: 30 * time.Minute, Backoff: housekeepingBackoff, MaxAttempts: 1,
		}),
		jobqueue.Register[CleanupOneInbox](reg, "cleanup_one_inbox_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: 10 * time.Minute, Backoff: housekeepingBackoff, MaxAttempts: 3,
		}),
		jobqueue.Register[PrincipalPurge](reg, "principal_purge_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: 30 * time.Minute, Backoff: housekeepingBackoff,
		}),
		jobqueue.Register[PrincipalPurgeHome](reg, "principal_purge_home_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: time.Hour, Backoff: housekeepingBackoff,
		}),
		jobqueue.Register[CalendarObjectSplit](reg, "calendar_object_split_work", jobqueue.Policy{
			Priority:      jobqueue.PriorityLow,
			LeaseDuration: 10 * time.Minute, Backoff: housekeepingBackoff, MaxAttempts: 3,
		}),
	)
}

// PeriodicWork adds the polling and cleanup work the server runs on a
// timetable.
func PeriodicWork(s *jobqueue.Scheduler) error {
	return errors.Join(
		s.AddWork(&IMIPPolling{}, jobqueue.Every(30*time.Second)),
		s.AddWork(&GroupCacherPolling{}, jobqueue.Every(time.Hour)),
		s.AddWork(&RevisionCleanup{}, jobqueue.DailyAt(3, 0)),
		s.AddWork(&InboxCleanup{}, jobqueue.DailyAt(2, 30)),
	)
}
