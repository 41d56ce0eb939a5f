package model

import (
	"testing"
	"time"
)

func TestStatusAt(t *testing.T) {
	loc := time.UTC
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, loc)
	end := time.Date(2024, 6, 1, 10, 0, 0, 0, loc)

	tests := []struct {
		name string
		now  time.Time
		want EventStatus
	}{
		{"well before start", start.Add(-time.Hour), StatusUpcoming},
		{"one second before start", start.Add(-time.Second), StatusUpcoming},
		{"exactly at start", start, StatusCurrent},
		{"mid event", start.Add(30 * time.Minute), StatusCurrent},
		{"exactly at end", end, StatusCurrent},
		{"one second after end", end.Add(time.Second), StatusPast},
		{"well after end", end.Add(time.Hour), StatusPast},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusAt(tc.now, start, end); got != tc.want {
				t.Errorf("StatusAt(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestFormatEventTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	sameDayStart := time.Date(2024, 6, 1, 9, 0, 0, 0, loc)
	sameDayEnd := time.Date(2024, 6, 1, 10, 30, 0, 0, loc)
	crossDayEnd := time.Date(2024, 6, 2, 1, 0, 0, 0, loc)

	tests := []struct {
		name   string
		start  time.Time
		end    time.Time
		allDay bool
		want   string
	}{
		{"all day", sameDayStart, sameDayEnd, true, "All Day"},
		{"same day range", sameDayStart, sameDayEnd, false, "09:00 - 10:30"},
		{"cross day shows start only", sameDayStart, crossDayEnd, false, "09:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatEventTime(tc.start, tc.end, tc.allDay); got != tc.want {
				t.Errorf("FormatEventTime = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	if StatusUpcoming.String() != "upcoming" || StatusCurrent.String() != "current" || StatusPast.String() != "past" {
		t.Error("unexpected EventStatus strings")
	}
	if KindWarning.String() != "warning" || KindStart.String() != "start" {
		t.Error("unexpected NotificationKind strings")
	}
}
