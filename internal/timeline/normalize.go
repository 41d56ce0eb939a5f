package timeline

import (
	"errors"
	"fmt"
	"time"

	"calwatch/internal/gateway"
	"calwatch/internal/model"
)

const (
	dateLayout = "2006-01-02"
	// defaultDuration backfills a missing end time.
	defaultDuration = time.Hour
)

// Normalize converts one raw gateway record plus its owning calendar's
// metadata into a canonical CalendarEvent in loc. It returns an error for
// records that cannot be recovered (missing start, unparseable times);
// callers discard those and continue with the batch.
//
// End resolution: a timed end is parsed and converted; a bare end date is
// localized to midnight of that date (the gateway's all-day end dates are
// exclusive, so a one-day all-day event ends at the next local midnight);
// a missing end defaults to start + 1h. An end before start also falls
// back to start + 1h, so start <= end always holds.
func Normalize(raw gateway.RawEvent, cal gateway.Calendar, loc *time.Location, now time.Time) (model.CalendarEvent, error) {
	if raw.Start.IsZero() {
		return model.CalendarEvent{}, errors.New("missing start field")
	}

	var (
		start  time.Time
		allDay bool
		err    error
	)
	switch {
	case raw.Start.DateTime != "":
		start, err = time.Parse(time.RFC3339, raw.Start.DateTime)
		if err != nil {
			return model.CalendarEvent{}, fmt.Errorf("invalid start time %q: %w", raw.Start.DateTime, err)
		}
		start = start.In(loc)
	default:
		start, err = time.ParseInLocation(dateLayout, raw.Start.Date, loc)
		if err != nil {
			return model.CalendarEvent{}, fmt.Errorf("invalid start date %q: %w", raw.Start.Date, err)
		}
		allDay = true
	}

	var end time.Time
	switch {
	case raw.End.DateTime != "":
		end, err = time.Parse(time.RFC3339, raw.End.DateTime)
		if err != nil {
			return model.CalendarEvent{}, fmt.Errorf("invalid end time %q: %w", raw.End.DateTime, err)
		}
		end = end.In(loc)
	case raw.End.Date != "":
		end, err = time.ParseInLocation(dateLayout, raw.End.Date, loc)
		if err != nil {
			return model.CalendarEvent{}, fmt.Errorf("invalid end date %q: %w", raw.End.Date, err)
		}
	default:
		end = start.Add(defaultDuration)
	}
	if end.Before(start) {
		end = start.Add(defaultDuration)
	}

	title := raw.Summary
	if title == "" {
		title = "No Title"
	}

	ev := model.CalendarEvent{
		ID:            raw.ID,
		Title:         title,
		Description:   raw.Description,
		Location:      raw.Location,
		Start:         start,
		End:           end,
		AllDay:        allDay,
		CalendarID:    cal.ID,
		CalendarLabel: cal.Label,
		CalendarColor: cal.ColorHex,
		Status:        model.StatusAt(now, start, end),
		DisplayTime:   model.FormatEventTime(start, end, allDay),
	}
	return ev, nil
}
