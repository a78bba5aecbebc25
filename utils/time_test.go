package utils

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
	}{
		{"date only", "2024-06-01"},
		{"rfc3339 utc", "2024-06-01T10:30:00Z"},
		{"rfc3339 offset", "2024-06-01T23:30:00+05:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}

	if _, err := ParseDate("06/01/2024"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}

func TestDayOfKeepsLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	local := time.Date(2024, 6, 2, 1, 0, 0, 0, loc) // still June 1st in UTC
	got := DayOf(local)
	if got.Day() != 2 || got.Location() != time.UTC {
		t.Errorf("expected June 2nd UTC midnight, got %v", got)
	}
}
