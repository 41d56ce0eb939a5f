// Package engine runs the control loop: a single reactor goroutine that
// owns the timeline, the rule engine, and the alert scheduler. All state
// mutation happens on that goroutine, so none of those components lock.
//
// The calendar fetch is the one blocking network operation; it is
// dispatched to a worker goroutine and its normalized snapshot delivered
// back over a channel, so the reactor is never stalled on I/O.
package engine

import (
	"context"
	"time"

	"calwatch/internal/clock"
	"calwatch/internal/gateway"
	appLog "calwatch/internal/log"
	"calwatch/internal/model"
	"calwatch/internal/notify"
	"calwatch/internal/timeline"
)

// Config carries the engine's tick intervals and fetch parameters.
type Config struct {
	// Location is the canonical display timezone.
	Location *time.Location
	// MaxEvents caps events requested per calendar and retained overall.
	MaxEvents int

	// StatusTick recomputes event statuses.
	StatusTick time.Duration
	// RuleTick scans for notification thresholds.
	RuleTick time.Duration
	// DrainTick promotes queued alerts.
	DrainTick time.Duration
}

// Engine wires the timeline classifier to the notification scheduler.
type Engine struct {
	cfg   Config
	gw    gateway.Source
	clk   clock.Clock
	tl    *timeline.Timeline
	rules *notify.RuleEngine
	sched *notify.Scheduler

	refreshCh chan struct{}
	dismissCh chan struct{}
	fetchRes  chan fetchResult

	// onCurrentEnded, when set, is invoked after a status tick in which
	// some event transitioned Current -> Past. Pure notification for
	// collaborators that track "the current event" positionally.
	onCurrentEnded func()
}

type fetchResult struct {
	events []model.CalendarEvent
	err    error
}

// New constructs an Engine. Run must be called before triggers have any
// effect.
func New(cfg Config, gw gateway.Source, clk clock.Clock, tl *timeline.Timeline, rules *notify.RuleEngine, sched *notify.Scheduler) *Engine {
	return &Engine{
		cfg:       cfg,
		gw:        gw,
		clk:       clk,
		tl:        tl,
		rules:     rules,
		sched:     sched,
		refreshCh: make(chan struct{}, 1),
		dismissCh: make(chan struct{}, 1),
		fetchRes:  make(chan fetchResult, 1),
	}
}

// SetCurrentEndedFunc registers the Current -> Past transition callback.
// Must be called before Run.
func (e *Engine) SetCurrentEndedFunc(fn func()) {
	e.onCurrentEnded = fn
}

// RequestRefresh asks the reactor to re-fetch the timeline. Safe from any
// goroutine; requests arriving while a fetch is in flight coalesce.
func (e *Engine) RequestRefresh() {
	select {
	case e.refreshCh <- struct{}{}:
	default:
	}
}

// DismissActive requests dismissal of the active alert, if any. This is
// the presenter's dismissal callback path; the engine does not distinguish
// who triggered it.
func (e *Engine) DismissActive() {
	select {
	case e.dismissCh <- struct{}{}:
	default:
	}
}

// Run executes the reactor loop until ctx is cancelled. An initial refresh
// is requested immediately.
func (e *Engine) Run(ctx context.Context) error {
	statusT := time.NewTicker(e.cfg.StatusTick)
	defer statusT.Stop()
	ruleT := time.NewTicker(e.cfg.RuleTick)
	defer ruleT.Stop()
	drainT := time.NewTicker(e.cfg.DrainTick)
	defer drainT.Stop()

	e.RequestRefresh()

	var (
		fetching bool
		pending  bool
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-e.refreshCh:
			if fetching {
				pending = true
				continue
			}
			fetching = true
			go e.fetch(ctx)

		case res := <-e.fetchRes:
			fetching = false
			if res.err != nil {
				// Previous timeline contents stay valid; the next
				// refresh tick retries.
				appLog.Error("timeline refresh failed, keeping previous events", res.err)
			} else {
				e.tl.Replace(res.events, e.clk.Now())
				appLog.Info("timeline refreshed", "events", e.tl.Len())
			}
			if pending {
				pending = false
				e.RequestRefresh()
			}

		case <-statusT.C:
			if e.tl.Tick(e.clk.Now()) && e.onCurrentEnded != nil {
				e.onCurrentEnded()
			}

		case <-ruleT.C:
			now := e.clk.Now()
			for _, trig := range e.rules.Scan(e.tl.Events(), now) {
				e.sched.Enqueue(trig)
			}

		case <-drainT.C:
			e.sched.Drain()

		case <-e.sched.TimeoutC():
			appLog.Info("notification auto-dismissed")
			e.sched.Dismiss()

		case <-e.dismissCh:
			e.sched.Dismiss()
		}
	}
}

// fetch runs on a worker goroutine and reports back over fetchRes.
func (e *Engine) fetch(ctx context.Context) {
	events, err := FetchDay(ctx, e.gw, e.cfg.Location, e.cfg.MaxEvents, e.clk.Now())
	select {
	case e.fetchRes <- fetchResult{events: events, err: err}:
	case <-ctx.Done():
	}
}

// FetchDay fetches and normalizes the target day's events across all
// source calendars. The day window is [local midnight, local end-of-day]
// at now in loc.
//
// A list-calendars failure aborts the whole fetch. A single calendar's
// fetch failure, or a single malformed record, is logged and skipped
// without aborting sibling work.
func FetchDay(ctx context.Context, gw gateway.Source, loc *time.Location, maxPerCalendar int, now time.Time) ([]model.CalendarEvent, error) {
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	cals, err := gw.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	var all []model.CalendarEvent
	for _, cal := range cals {
		raws, err := gw.ListEventsForDay(ctx, cal.ID, dayStart, dayEnd, maxPerCalendar)
		if err != nil {
			appLog.Error("calendar fetch failed, skipping", err, "calendar", cal.ID)
			continue
		}
		for _, raw := range raws {
			ev, err := timeline.Normalize(raw, cal, loc, now)
			if err != nil {
				appLog.Error("event discarded", err, "calendar", cal.ID, "event_id", raw.ID)
				continue
			}
			all = append(all, ev)
		}
	}

	return all, nil
}
