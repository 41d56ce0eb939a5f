// Package timeline holds the ordered, bounded collection of today's
// calendar events and derives each event's temporal status. It is the
// single authority for event status: no other component stores or
// recomputes status on its own.
package timeline

import (
	"sort"
	"time"

	"calwatch/internal/model"
)

// Timeline is the canonical in-memory event sequence, ordered by start
// time ascending and truncated to a configured maximum count.
//
// All methods must be called from the single control goroutine; Timeline
// performs no locking of its own.
type Timeline struct {
	max    int
	events []model.CalendarEvent

	lastRefreshedAt time.Time
}

// New constructs an empty Timeline capped at max events per refresh.
func New(max int) *Timeline {
	return &Timeline{max: max}
}

// Replace atomically swaps in a new event sequence: events are stably
// sorted by start ascending and truncated to the configured maximum, so
// truncation always drops the latest-starting events.
func (t *Timeline) Replace(events []model.CalendarEvent, at time.Time) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	if t.max > 0 && len(events) > t.max {
		events = events[:t.max]
	}
	t.events = events
	t.lastRefreshedAt = at
}

// Events exposes the current sequence. The returned slice is owned by the
// Timeline and is only valid on the control goroutine.
func (t *Timeline) Events() []model.CalendarEvent {
	return t.events
}

// Len reports the number of events currently held.
func (t *Timeline) Len() int {
	return len(t.events)
}

// LastRefreshedAt reports when the sequence was last replaced.
func (t *Timeline) LastRefreshedAt() time.Time {
	return t.lastRefreshedAt
}

// Tick recomputes the status of every event at now. It reports whether any
// event transitioned Current -> Past, which tells collaborators that any
// positional ordering dependent on "the current event" must be recomputed.
func (t *Timeline) Tick(now time.Time) (currentEnded bool) {
	for i := range t.events {
		old := t.events[i].Status
		t.events[i].Status = model.StatusAt(now, t.events[i].Start, t.events[i].End)
		if old == model.StatusCurrent && t.events[i].Status == model.StatusPast {
			currentEnded = true
		}
	}
	return currentEnded
}

// Current returns the first event whose status is Current.
func (t *Timeline) Current() (model.CalendarEvent, bool) {
	for _, ev := range t.events {
		if ev.Status == model.StatusCurrent {
			return ev, true
		}
	}
	return model.CalendarEvent{}, false
}

// Next returns the first event (in start order) starting strictly after now.
func (t *Timeline) Next(now time.Time) (model.CalendarEvent, bool) {
	for _, ev := range t.events {
		if ev.Start.After(now) {
			return ev, true
		}
	}
	return model.CalendarEvent{}, false
}

// MinutesUntilNext returns whole minutes from now to the next event's
// start, rounded toward zero. The second result is false when no event
// starts after now.
func (t *Timeline) MinutesUntilNext(now time.Time) (int, bool) {
	next, ok := t.Next(now)
	if !ok {
		return 0, false
	}
	return int(next.Start.Sub(now).Minutes()), true
}
