package validation

import (
	"time"
)

const dateLayout = "2006-01-02"

// Layouts without a zone are read as UTC. Fractional seconds are accepted by
// time.Parse after the seconds field even when the layout omits them.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

// ParseDateTime parses an ISO-8601 date or date-time. A bare date yields
// midnight UTC.
func ParseDateTime(field, value string) (time.Time, error) {
	v := Text(value)
	if v == "" {
		return time.Time{}, Missing(field)
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	return time.Time{}, Invalid(field, value, "not an ISO-8601 date or date-time")
}

// ParseDate parses an ISO-8601 calendar date. A date-time is accepted and
// truncated to its calendar date in UTC.
func ParseDate(field, value string) (time.Time, error) {
	v := Text(value)
	if v == "" {
		return time.Time{}, Missing(field)
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	t, err := ParseDateTime(field, v)
	if err != nil {
		return time.Time{}, Invalid(field, value, "not an ISO-8601 date")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
