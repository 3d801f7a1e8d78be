package workitems

import (
	"strconv"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/validator"
)

const (
	WorkRevisionCleanup     jobqueue.WorkType = "revision_cleanup"
	WorkInboxCleanup        jobqueue.WorkType = "inbox_cleanup"
	WorkCleanupOneInbox     jobqueue.WorkType = "cleanup_one_inbox"
	WorkPrincipalPurge      jobqueue.WorkType = "principal_purge"
	WorkPrincipalPurgeHome  jobqueue.WorkType = "principal_purge_home"
	WorkCalendarObjectSplit jobqueue.WorkType = "calendar_object_split"
)

// RevisionCleanup drops sync-token revisions older than the retention window.
type RevisionCleanup struct{}

func (*RevisionCleanup) WorkType() jobqueue.WorkType { return WorkRevisionCleanup }

func (*RevisionCleanup) Validate() error { return nil }

// InboxCleanup finds scheduling inboxes with stale items and enqueues a
// CleanupOneInbox for each.
type InboxCleanup struct{}

func (*InboxCleanup) WorkType() jobqueue.WorkType { return WorkInboxCleanup }

func (*InboxCleanup) Validate() error { return nil }

// CleanupOneInbox removes old and orphaned items from one scheduling inbox.
type CleanupOneInbox struct {
	HomeID int64 `json:"home_id" db:"home_id"`
}

func (*CleanupOneInbox) WorkType() jobqueue.WorkType { return WorkCleanupOneInbox }

func (p *CleanupOneInbox) LockKey() string { return "inbox:" + strconv.FormatInt(p.HomeID, 10) }

func (p *CleanupOneInbox) Validate() error {
	return validator.Apply(validator.PositiveID("home_id", p.HomeID))
}

// PrincipalPurge removes everything a deleted principal owns. It enqueues a
// PrincipalPurgeHome per home, all serialized under the same lock.
type PrincipalPurge struct {
	UID string `json:"uid" db:"uid"`
}

func (*PrincipalPurge) WorkType() jobqueue.WorkType { return WorkPrincipalPurge }

func (p *PrincipalPurge) LockKey() string { return purgeLock(p.UID) }

func (p *PrincipalPurge) Validate() error {
	return validator.Apply(
		validator.RequiredString("uid", p.UID),
		validator.MaxLenString("uid", p.UID, 255),
	)
}

// PrincipalPurgeHome removes one calendar or address book home of a purged
// principal.
type PrincipalPurgeHome struct {
	UID            string `json:"uid" db:"uid"`
	HomeResourceID int64  `json:"home_resource_id" db:"home_resource_id"`
}

func (*PrincipalPurgeHome) WorkType() jobqueue.WorkType { return WorkPrincipalPurgeHome }

func (p *PrincipalPurgeHome) LockKey() string { return purgeLock(p.UID) }

func (p *PrincipalPurgeHome) Validate() error {
	return validator.Apply(
		validator.RequiredString("uid", p.UID),
		validator.PositiveID("home_resource_id", p.HomeResourceID),
	)
}

func purgeLock(uid string) string { return "purge:" + uid }

// CalendarObjectSplit splits an oversized recurring event into past and
// future parts.
type CalendarObjectSplit struct {
	ResourceID int64 `json:"resource_id" db:"resource_id"`
}

func (*CalendarObjectSplit) WorkType() jobqueue.WorkType { return WorkCalendarObjectSplit }

func (p *CalendarObjectSplit) LockKey() string {
	return "split:" + strconv.FormatInt(p.ResourceID, 10)
}

func (p *CalendarObjectSplit) Validate() error {
	return validator.Apply(validator.PositiveID("resource_id", p.ResourceID))
}
