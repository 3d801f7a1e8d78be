package jobqueue

import (
	"fmt"
	"time"
)

// Schedule determines when a periodic work item is due next
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

// Every runs at a fixed interval measured from the previous run
func Every(d time.Duration) Schedule {
	if d <= 0 {
		d = time.Minute
	}
	return intervalSchedule{every: d}
}

// HourlyAt runs once an hour at the given minute
func HourlyAt(minute int) Schedule {
	return hourlySchedule{minute: clamp(minute, 0, 59)}
}

// DailyAt runs once a day at the given wall-clock time
func DailyAt(hour, minute int) Schedule {
	return dailySchedule{hour: clamp(hour, 0, 23), minute: clamp(minute, 0, 59)}
}

// WeeklyOn runs once a week on weekday at the given wall-clock time
func WeeklyOn(weekday time.Weekday, hour, minute int) Schedule {
	return weeklySchedule{weekday: weekday, daily: dailySchedule{hour: clamp(hour, 0, 23), minute: clamp(minute, 0, 59)}}
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

type hourlySchedule struct {
	minute int
}

func (s hourlySchedule) Next(from time.Time) time.Time {
	next := from.Truncate(time.Hour).Add(time.Duration(s.minute) * time.Minute)
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	return next
}

func (s hourlySchedule) String() string {
	return fmt.Sprintf("hourly at :%02d", s.minute)
}

type dailySchedule struct {
	hour   int
	minute int
}

func (s dailySchedule) at(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.hour, s.minute, 0, 0, day.Location())
}

func (s dailySchedule) Next(from time.Time) time.Time {
	next := s.at(from)
	if !next.After(from) {
		next = s.at(from.AddDate(0, 0, 1))
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
}

type weeklySchedule struct {
	weekday time.Weekday
	daily   dailySchedule
}

func (s weeklySchedule) Next(from time.Time) time.Time {
	// days until the target weekday, wrapping around the week
	days := (int(s.weekday) - int(from.Weekday()) + 7) % 7
	next := s.daily.at(from.AddDate(0, 0, days))
	if !next.After(from) {
		next = s.daily.at(from.AddDate(0, 0, days+7))
	}
	return next
}

func (s weeklySchedule) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d", s.weekday, s.daily.hour, s.daily.minute)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
