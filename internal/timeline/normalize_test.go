package timeline

import (
	"testing"
	"time"

	"calwatch/internal/gateway"
	"calwatch/internal/model"
)

var testCalendar = gateway.Calendar{
	ID:       "work",
	Label:    "Work",
	ColorHex: "#4285f4",
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestNormalizeTimedEventDefaultsEndToOneHour(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, loc)

	raw := gateway.RawEvent{
		ID:      "ev1",
		Summary: "Standup",
		Start:   gateway.RawTime{DateTime: "2024-06-01T09:00:00-04:00"},
	}

	ev, err := Normalize(raw, testCalendar, loc, now)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	wantStart := time.Date(2024, 6, 1, 9, 0, 0, 0, loc)
	wantEnd := time.Date(2024, 6, 1, 10, 0, 0, 0, loc)
	if !ev.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", ev.Start, wantStart)
	}
	if !ev.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v (default 1h fallback)", ev.End, wantEnd)
	}
	if ev.AllDay {
		t.Error("timed event marked all-day")
	}
	if ev.Status != model.StatusUpcoming {
		t.Errorf("Status = %v, want upcoming", ev.Status)
	}
}

func TestNormalizeAllDayEvent(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, loc)

	raw := gateway.RawEvent{
		ID:      "ev2",
		Summary: "Conference",
		Start:   gateway.RawTime{Date: "2024-06-01"},
		End:     gateway.RawTime{Date: "2024-06-02"},
	}

	ev, err := Normalize(raw, testCalendar, loc, now)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if !ev.AllDay {
		t.Error("expected all-day event")
	}
	wantStart := time.Date(2024, 6, 1, 0, 0, 0, 0, loc)
	if !ev.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want local midnight %v", ev.Start, wantStart)
	}
	// The gateway's all-day end date is exclusive: a one-day event ends
	// at the next local midnight, not at start + 1h.
	wantEnd := time.Date(2024, 6, 2, 0, 0, 0, 0, loc)
	if !ev.End.Equal(wantEnd) {
		t.Errorf("End = %v, want next local midnight %v", ev.End, wantEnd)
	}
	if ev.DisplayTime != "All Day" {
		t.Errorf("DisplayTime = %q, want %q", ev.DisplayTime, "All Day")
	}
}

func TestNormalizeDiscards(t *testing.T) {
	loc := mustLocation(t, "UTC")
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, loc)

	tests := []struct {
		name string
		raw  gateway.RawEvent
	}{
		{"missing start", gateway.RawEvent{ID: "x"}},
		{"garbage start datetime", gateway.RawEvent{ID: "x", Start: gateway.RawTime{DateTime: "not-a-time"}}},
		{"garbage start date", gateway.RawEvent{ID: "x", Start: gateway.RawTime{Date: "01/06/2024"}}},
		{"garbage end datetime", gateway.RawEvent{
			ID:    "x",
			Start: gateway.RawTime{DateTime: "2024-06-01T09:00:00Z"},
			End:   gateway.RawTime{DateTime: "later"},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.raw, testCalendar, loc, now); err == nil {
				t.Error("expected discard error, got nil")
			}
		})
	}
}

func TestNormalizeEndBeforeStartFallsBack(t *testing.T) {
	loc := mustLocation(t, "UTC")
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, loc)

	raw := gateway.RawEvent{
		ID:    "ev3",
		Start: gateway.RawTime{DateTime: "2024-06-01T09:00:00Z"},
		End:   gateway.RawTime{DateTime: "2024-06-01T08:00:00Z"},
	}

	ev, err := Normalize(raw, testCalendar, loc, now)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !ev.End.Equal(ev.Start.Add(time.Hour)) {
		t.Errorf("End = %v, want start+1h fallback", ev.End)
	}
}

func TestNormalizeEmptyTitle(t *testing.T) {
	loc := mustLocation(t, "UTC")
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, loc)

	raw := gateway.RawEvent{
		ID:    "ev4",
		Start: gateway.RawTime{DateTime: "2024-06-01T09:00:00Z"},
	}

	ev, err := Normalize(raw, testCalendar, loc, now)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if ev.Title != "No Title" {
		t.Errorf("Title = %q, want %q", ev.Title, "No Title")
	}
}

func TestNormalizeProvenance(t *testing.T) {
	loc := mustLocation(t, "UTC")
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, loc)

	raw := gateway.RawEvent{
		ID:       "ev5",
		Summary:  "1:1",
		Location: "Room 4",
		Start:    gateway.RawTime{DateTime: "2024-06-01T09:00:00Z"},
		End:      gateway.RawTime{DateTime: "2024-06-01T09:30:00Z"},
	}

	ev, err := Normalize(raw, testCalendar, loc, now)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if ev.CalendarID != "work" || ev.CalendarLabel != "Work" || ev.CalendarColor != "#4285f4" {
		t.Errorf("provenance not carried: %+v", ev)
	}
	if ev.DisplayTime != "09:00 - 09:30" {
		t.Errorf("DisplayTime = %q", ev.DisplayTime)
	}
}
