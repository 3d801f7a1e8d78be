package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/jobqueue/pkg/validator"
)

func TestCalendarUserAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		valid bool
	}{
		{"mailto:user01@example.com", true},
		{"MAILTO:User01@Example.com", true},
		{"urn:uuid:10000000-0000-0000-0000-000000000001", true},
		{"https://cal.example.com/principals/users/user01/", true},
		{"mailto:@example.com", false},
		{"mailto:user01@", false},
		{"mailto:user 01@example.com", false},
		{"user01@example.com", false},
		{"urn:uuid:", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			err := validator.Apply(validator.CalendarUserAddress("addr", tt.value))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestICalendarText(t *testing.T) {
	t.Parallel()

	valid := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"
	assert.NoError(t, validator.Apply(validator.ICalendarText("ical", valid)))
	assert.Error(t, validator.Apply(validator.ICalendarText("ical", "BEGIN:VEVENT")))
	assert.Error(t, validator.Apply(validator.ICalendarText("ical", "")))
}

func TestOneOfAndEmpty(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validator.Apply(validator.OneOf("action", "modify", "create", "modify", "remove")))
	assert.Error(t, validator.Apply(validator.OneOf("action", "rename", "create", "modify", "remove")))

	assert.NoError(t, validator.Apply(validator.Empty("resource_id", int64(0))))
	assert.Error(t, validator.Apply(validator.Empty("resource_id", int64(7))))
}

func TestPositiveID(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validator.Apply(validator.PositiveID("id", int64(1))))
	assert.Error(t, validator.Apply(validator.PositiveID("id", int64(0))))
	assert.Error(t, validator.Apply(validator.PositiveID("id", int32(-4))))
}
