// Package gateway defines the boundary contract for external calendar
// sources. Implementations live in internal/gcal (Google Calendar API)
// and internal/ics (ICS subscription feeds).
package gateway

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the calendar source could not be reached at all
// (transport or auth failure). A refresh cycle that hits this at the
// list-calendars step aborts and leaves the previous timeline untouched.
var ErrUnavailable = errors.New("calendar gateway unavailable")

// Calendar describes one source calendar.
type Calendar struct {
	ID       string
	Label    string
	Primary  bool
	ColorHex string
}

// RawTime is the gateway's wire representation of an event boundary:
// either an RFC 3339 timed instant or a bare all-day date, never both.
type RawTime struct {
	// DateTime is an RFC 3339 timestamp when the boundary is timed.
	DateTime string
	// Date is a bare YYYY-MM-DD date for all-day boundaries.
	Date string
}

// IsZero reports whether neither form is present.
func (t RawTime) IsZero() bool {
	return t.DateTime == "" && t.Date == ""
}

// RawEvent is one unprocessed event record as returned by a source.
type RawEvent struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       RawTime
	End         RawTime
}

// Source is the consumed capability of a calendar backend.
//
// ListEventsForDay failures are scoped to one calendar: the caller skips
// the failing calendar and continues with its siblings.
type Source interface {
	ListCalendars(ctx context.Context) ([]Calendar, error)
	ListEventsForDay(ctx context.Context, calendarID string, dayStart, dayEnd time.Time, maxResults int) ([]RawEvent, error)
}
