package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	rrule "github.com/teambition/rrule-go"

	"calwatch/internal/gateway"
	appLog "calwatch/internal/log"
)

// occurrence cap per recurring VEVENT within one day window. A day window
// can realistically hold a few hundred instances at most; anything beyond
// this is a pathological rule.
const maxOccurrencesPerEvent = 500

// parsedEvent is one VEVENT before recurrence expansion.
type parsedEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule string
	ExDates  []time.Time
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// The library's helpers handle VTIMEZONE/TZID resolution.
	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("missing or invalid DTSTART")
	}
	end, _ := ve.GetEndAt()
	out.Start = start
	out.End = end

	// All-day detection: DTSTART with VALUE=DATE or a bare YYYYMMDD value.
	if dtStart := ve.GetProperty(ical.ComponentPropertyDtStart); dtStart != nil {
		if params := dtStart.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.AllDay = true
			}
		}
		if !strings.Contains(dtStart.Value, "T") {
			out.AllDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, out.Start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// expandToWindow turns a parsed VEVENT into raw gateway records for every
// instance intersecting [windowStart, windowEnd].
func expandToWindow(ev parsedEvent, windowStart, windowEnd time.Time) []gateway.RawEvent {
	if ev.RawRRule == "" {
		if !overlaps(ev.Start, endOrDefault(ev), windowStart, windowEnd) {
			return nil
		}
		return []gateway.RawEvent{toRaw(ev, ev.UID, ev.Start, ev.End)}
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics rrule parse failed", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between operates in the event's own location.
	starts := set.Between(windowStart.In(ev.Start.Location()), windowEnd.In(ev.Start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		appLog.Error("ics recurrence truncated", errors.New("occurrence cap reached"), "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		starts = starts[:maxOccurrencesPerEvent]
	}

	dur := ev.End.Sub(ev.Start)

	out := make([]gateway.RawEvent, 0, len(starts))
	for _, s := range starts {
		var e time.Time
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			e = s.Add(24 * time.Hour)
		} else {
			e = s.Add(dur)
		}
		// Per-instance IDs keep dedup identity distinct across instances
		// of one recurring event.
		id := ev.UID + "_" + s.UTC().Format("20060102T150405Z")
		out = append(out, toRaw(ev, id, s, e))
	}
	return out
}

func toRaw(ev parsedEvent, id string, start, end time.Time) gateway.RawEvent {
	raw := gateway.RawEvent{
		ID:          id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
	}
	if ev.AllDay {
		raw.Start = gateway.RawTime{Date: start.Format("2006-01-02")}
		if !end.IsZero() {
			raw.End = gateway.RawTime{Date: end.Format("2006-01-02")}
		}
	} else {
		raw.Start = gateway.RawTime{DateTime: start.Format(time.RFC3339)}
		if !end.IsZero() {
			raw.End = gateway.RawTime{DateTime: end.Format(time.RFC3339)}
		}
	}
	return raw
}

func endOrDefault(ev parsedEvent) time.Time {
	if !ev.End.IsZero() {
		return ev.End
	}
	return ev.Start
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}

// parseICSTime parses the basic ICS date/date-time forms used by EXDATE.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
