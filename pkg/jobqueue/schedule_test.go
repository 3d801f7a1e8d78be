package jobqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

func TestSchedules(t *testing.T) {
	t.Parallel()

	// Friday 2024-03-01 12:30 UTC
	from := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule jobqueue.Schedule
		want     time.Time
		str      string
	}{
		{"every", jobqueue.Every(15 * time.Minute), from.Add(15 * time.Minute), "every 15m0s"},
		{"every non-positive", jobqueue.Every(0), from.Add(time.Minute), "every 1m0s"},
		{"hourly later this hour", jobqueue.HourlyAt(45), time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC), "hourly at :45"},
		{"hourly next hour", jobqueue.HourlyAt(10), time.Date(2024, 3, 1, 13, 10, 0, 0, time.UTC), "hourly at :10"},
		{"daily today", jobqueue.DailyAt(18, 0), time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), "daily at 18:00"},
		{"daily tomorrow", jobqueue.DailyAt(3, 15), time.Date(2024, 3, 2, 3, 15, 0, 0, time.UTC), "daily at 03:15"},
		{"daily at same instant", jobqueue.DailyAt(12, 30), time.Date(2024, 3, 2, 12, 30, 0, 0, time.UTC), "daily at 12:30"},
		{"weekly later this week", jobqueue.WeeklyOn(time.Sunday, 2, 0), time.Date(2024, 3, 3, 2, 0, 0, 0, time.UTC), "weekly on Sunday at 02:00"},
		{"weekly same day passed", jobqueue.WeeklyOn(time.Friday, 9, 0), time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC), "weekly on Friday at 09:00"},
		{"weekly same day ahead", jobqueue.WeeklyOn(time.Friday, 20, 0), time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC), "weekly on Friday at 20:00"},
		{"clamped", jobqueue.DailyAt(30, 99), time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC), "daily at 23:59"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.schedule.Next(from))
			assert.Equal(t, tt.str, tt.schedule.String())
		})
	}
}
