package validator

import (
	"fmt"
	"slices"
	"strings"
)

// RequiredString validates that a string is not empty after trimming whitespace.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{
			Field:   field,
			Rule:    "required",
			Message: "field is required",
		},
	}
}

func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) <= max
		},
		Error: ValidationError{
			Field:   field,
			Rule:    "max_length",
			Message: fmt.Sprintf("must be at most %d characters long", max),
		},
	}
}

// MinNum validates that a numeric value is greater than or equal to min.
func MinNum[T Numeric](field string, value T, min T) Rule {
	return Rule{
		Check: func() bool {
			return value >= min
		},
		Error: ValidationError{
			Field:   field,
			Rule:    "min",
			Message: fmt.Sprintf("must be at least %v", min),
		},
	}
}

// PositiveID validates a database identifier reference.
func PositiveID[T ~int32 | ~int64](field string, value T) Rule {
	return Rule{
		Check: func() bool {
			return value > 0
		},
		Error: ValidationError{
			Field:   field,
			Rule:    "positive_id",
			Message: "must reference an existing row",
		},
	}
}

func OneOf[T comparable](field string, value T, allowed ...T) Rule {
	return Rule{
		Check: func() bool {
			return slices.Contains(allowed, value)
		},
		Error: ValidationError{
			Field:   field,
			Rule:    "one_of",
			Message: fmt.Sprintf("must be one of: %v", allowed),
		},
	}
}

// Empty validates that a value was left unset, for fields that are
// meaningless in a given variant.
func Empty[T comparable](field string, value T) Rule {
	var zero T
	return Rule{
		Check: func() bool {
			return value == zero
		},
		Error: ValidationError{
			Field:   field,
			Rule:    "empty",
			Message: "must not be set",
		},
	}
}

// CalendarUserAddress validates a calendar user address as used in scheduling
// messages: a mailto:, urn:uuid: or http(s) URI.
func CalendarUserAddress(field, value string) Rule {
	return Rule{
		Check: func() bool {
			v := strings.ToLower(strings.TrimSpace(value))
			switch {
			case strings.HasPrefix(v, "mailto:"):
				addr := v[len("mailto:"):]
				at := strings.IndexByte(addr, '@')
				return at > 0 && at < len(addr)-1 && !strings.ContainsAny(addr, " \t")
			case strings.HasPrefix(v, "urn:uuid:"):
				return len(v) > len("urn:uuid:")
			case strings.HasPrefix(v, "http://"), strings.HasPrefix(v, "https://"):
				return len(v) > len("https://")
			}
			return false
		},
		Error: ValidationError{
			Field:   field,
			Rule:    "calendar_user_address",
			Message: "must be a mailto:, urn:uuid: or http(s) calendar user address",
		},
	}
}

// ICalendarText validates that a value is a serialized VCALENDAR object.
func ICalendarText(field, value string) Rule {
	return Rule{
		Check: func() bool {
			v := strings.TrimSpace(value)
			return strings.HasPrefix(v, "BEGIN:VCALENDAR") && strings.HasSuffix(v, "END:VCALENDAR")
		},
		Error: ValidationError{
			Field:   field,
			Rule:    "icalendar",
			Message: "must be a BEGIN:VCALENDAR ... END:VCALENDAR object",
		},
	}
}
