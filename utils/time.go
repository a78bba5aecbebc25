package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DayOf returns the calendar day of t in t's own location, expressed as UTC
// midnight. Appointment dates are stored in this form.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the server's current local calendar day.
func Today() time.Time {
	return DayOf(time.Now())
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp and keeps only the
// calendar date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DayOf(t), nil
}
