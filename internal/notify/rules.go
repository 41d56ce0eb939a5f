// Package notify contains the notification rule engine and the alert
// scheduler: the rule engine decides which timeline events have crossed a
// threshold, the scheduler serializes their presentation.
package notify

import (
	"time"

	appLog "calwatch/internal/log"
	"calwatch/internal/model"
)

// startWindow is the trigger window for start alerts: an event starting
// within the next minute.
const startWindow = time.Minute

// Trigger pairs a fired notification record with a snapshot of the event
// it refers to, so the presenter can render without going back to the
// timeline.
type Trigger struct {
	Event  model.CalendarEvent
	Record model.NotificationRecord
}

type dedupKey struct {
	eventID string
	kind    model.NotificationKind
}

// RuleEngine scans the timeline once per rule-check tick and emits a
// trigger for every event entering a warning or start window, deduplicated
// by (event, kind) for the whole session.
//
// The dedup cache grows monotonically and is cleared wholesale once its
// size exceeds the ceiling. This coarse reset is the intended policy: there
// is no per-entry time-based expiry.
type RuleEngine struct {
	warning time.Duration
	ceiling int
	fired   map[dedupKey]struct{}
}

// NewRuleEngine constructs a RuleEngine with the given warning lead time
// and dedup cache ceiling.
func NewRuleEngine(warningMinutes, ceiling int) *RuleEngine {
	return &RuleEngine{
		warning: time.Duration(warningMinutes) * time.Minute,
		ceiling: ceiling,
		fired:   make(map[dedupKey]struct{}),
	}
}

// Scan evaluates every non-past event against the start and warning
// windows at now and returns the triggers that fired for the first time
// this session. Pairs already fired are silently skipped.
//
// The warning window is symmetric, two minutes wide, centered on the
// configured lead time, so at least one rule-check tick intersects it at
// the configured poll interval.
func (r *RuleEngine) Scan(events []model.CalendarEvent, now time.Time) []Trigger {
	var out []Trigger

	for _, ev := range events {
		if ev.Status == model.StatusPast {
			continue
		}

		toStart := ev.Start.Sub(now)

		var kind model.NotificationKind
		switch {
		case toStart >= 0 && toStart <= startWindow:
			kind = model.KindStart
		case toStart >= r.warning-startWindow && toStart <= r.warning+startWindow:
			kind = model.KindWarning
		default:
			continue
		}

		key := dedupKey{eventID: ev.ID, kind: kind}
		if _, seen := r.fired[key]; seen {
			continue
		}
		r.fired[key] = struct{}{}

		out = append(out, Trigger{
			Event: ev,
			Record: model.NotificationRecord{
				EventID:   ev.ID,
				Kind:      kind,
				CreatedAt: now,
			},
		})
	}

	// Coarse anti-leak reset once the session cache exceeds the ceiling.
	if len(r.fired) > r.ceiling {
		r.fired = make(map[dedupKey]struct{})
		appLog.Info("notification dedup cache cleared", "ceiling", r.ceiling)
	}

	return out
}

// Fired reports whether the (eventID, kind) pair has already fired this
// session.
func (r *RuleEngine) Fired(eventID string, kind model.NotificationKind) bool {
	_, ok := r.fired[dedupKey{eventID: eventID, kind: kind}]
	return ok
}

// CacheSize reports the current dedup cache size.
func (r *RuleEngine) CacheSize() int {
	return len(r.fired)
}

// Reset clears all session dedup state.
func (r *RuleEngine) Reset() {
	r.fired = make(map[dedupKey]struct{})
}
