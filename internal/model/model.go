package model

import "time"

// EventStatus classifies an event against the current wall clock.
type EventStatus int

const (
	StatusUpcoming EventStatus = iota
	StatusCurrent
	StatusPast
)

func (s EventStatus) String() string {
	switch s {
	case StatusUpcoming:
		return "upcoming"
	case StatusCurrent:
		return "current"
	case StatusPast:
		return "past"
	default:
		return "unknown"
	}
}

// CalendarEvent is the canonical normalized form of one calendar event.
// Instances are replaced wholesale on every refresh; only Status is mutated
// in place between refreshes, and only by the timeline status tick.
type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	Location    string

	// Start / End are in the configured display timezone.
	// Invariant: Start <= End (the normalizer enforces this with a
	// default-duration fallback, never by rejecting the event).
	Start time.Time
	End   time.Time

	// AllDay events carry local-midnight-aligned date boundaries in
	// Start/End rather than timed instants.
	AllDay bool

	// Provenance of the originating calendar.
	CalendarID    string
	CalendarLabel string
	CalendarColor string

	// Status is derived from Start, End and the clock. It is not
	// authoritative state.
	Status EventStatus

	// DisplayTime is the precomputed human-readable time range.
	DisplayTime string
}

// StatusAt derives the temporal status of an event at now. Both range
// bounds are inclusive: now == start and now == end both count as current.
func StatusAt(now, start, end time.Time) EventStatus {
	if now.Before(start) {
		return StatusUpcoming
	}
	if !now.After(end) {
		return StatusCurrent
	}
	return StatusPast
}

const allDayLabel = "All Day"

// FormatEventTime renders the display label for an event's time range.
// All-day events get a fixed sentinel label. Timed events render as
// "HH:MM - HH:MM" when start and end fall on the same calendar day,
// otherwise just the start time.
func FormatEventTime(start, end time.Time, allDay bool) string {
	if allDay {
		return allDayLabel
	}

	const layout = "15:04"
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy == ey && sm == em && sd == ed {
		return start.Format(layout) + " - " + end.Format(layout)
	}
	return start.Format(layout)
}
