package workitems

import (
	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/validator"
)

const (
	WorkIMIPInvitation jobqueue.WorkType = "imip_invitation"
	WorkIMIPReply      jobqueue.WorkType = "imip_reply"
	WorkIMIPPolling    jobqueue.WorkType = "imip_polling"
)

// IMIPInvitation emails an iTIP message to an attendee outside the server.
type IMIPInvitation struct {
	FromAddr      string `json:"from_addr" db:"from_addr"`
	ToAddr        string `json:"to_addr" db:"to_addr"`
	ICalendarText string `json:"icalendar_text" db:"icalendar_text"`
}

func (*IMIPInvitation) WorkType() jobqueue.WorkType { return WorkIMIPInvitation }

func (p *IMIPInvitation) Validate() error {
	return validator.Apply(
		validator.CalendarUserAddress("from_addr", p.FromAddr),
		validator.CalendarUserAddress("to_addr", p.ToAddr),
		validator.ICalendarText("icalendar_text", p.ICalendarText),
	)
}

// IMIPReply injects a reply received by email back into the organizer's
// calendar.
type IMIPReply struct {
	Organizer     string `json:"organizer" db:"organizer"`
	Attendee      string `json:"attendee" db:"attendee"`
	ICalendarText string `json:"icalendar_text" db:"icalendar_text"`
}

func (*IMIPReply) WorkType() jobqueue.WorkType { return WorkIMIPReply }

func (p *IMIPReply) Validate() error {
	return validator.Apply(
		validator.CalendarUserAddress("organizer", p.Organizer),
		validator.CalendarUserAddress("attendee", p.Attendee),
		validator.ICalendarText("icalendar_text", p.ICalendarText),
	)
}

// IMIPPolling checks the inbound mailbox for iMIP replies. It is enqueued
// by the scheduler and carries no data.
type IMIPPolling struct{}

func (*IMIPPolling) WorkType() jobqueue.WorkType { return WorkIMIPPolling }

func (*IMIPPolling) Validate() error { return nil }
