package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"calwatch/internal/clock"
	"calwatch/internal/gateway"
	"calwatch/internal/model"
	"calwatch/internal/notify"
	"calwatch/internal/timeline"
)

type fakeSource struct {
	mu        sync.Mutex
	calendars []gateway.Calendar
	events    map[string][]gateway.RawEvent
	calErr    error
	evErr     map[string]error

	listCalls int
}

func (f *fakeSource) ListCalendars(ctx context.Context) ([]gateway.Calendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.calErr != nil {
		return nil, f.calErr
	}
	return f.calendars, nil
}

func (f *fakeSource) ListEventsForDay(ctx context.Context, calendarID string, dayStart, dayEnd time.Time, maxResults int) ([]gateway.RawEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.evErr[calendarID]; err != nil {
		return nil, err
	}
	return f.events[calendarID], nil
}

// recordingPresenter is safe for concurrent observation; the reactor
// goroutine calls Show/Hide while the test polls the counters.
type recordingPresenter struct {
	mu    sync.Mutex
	shown []model.NotificationRecord
	hides int
}

func (p *recordingPresenter) ShowAlert(ev model.CalendarEvent, kind model.NotificationKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, model.NotificationRecord{EventID: ev.ID, Kind: kind})
}

func (p *recordingPresenter) HideAlert() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hides++
}

func (p *recordingPresenter) snapshot() ([]model.NotificationRecord, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.NotificationRecord(nil), p.shown...), p.hides
}

func rawTimed(id string, start, end time.Time) gateway.RawEvent {
	return gateway.RawEvent{
		ID:      id,
		Summary: id,
		Start:   gateway.RawTime{DateTime: start.Format(time.RFC3339)},
		End:     gateway.RawTime{DateTime: end.Format(time.RFC3339)},
	}
}

func TestFetchDaySkipsFailingCalendar(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{
		calendars: []gateway.Calendar{
			{ID: "work", Label: "Work"},
			{ID: "broken", Label: "Broken"},
			{ID: "home", Label: "Home"},
		},
		events: map[string][]gateway.RawEvent{
			"work": {rawTimed("w1", now.Add(time.Hour), now.Add(2*time.Hour))},
			"home": {rawTimed("h1", now.Add(3*time.Hour), now.Add(4*time.Hour))},
		},
		evErr: map[string]error{"broken": errors.New("boom")},
	}

	events, err := FetchDay(context.Background(), src, time.UTC, 5, now)
	if err != nil {
		t.Fatalf("FetchDay: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].CalendarID != "work" || events[1].CalendarID != "home" {
		t.Errorf("provenance = %q, %q", events[0].CalendarID, events[1].CalendarID)
	}
}

func TestFetchDaySkipsMalformedRecords(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{
		calendars: []gateway.Calendar{{ID: "work"}},
		events: map[string][]gateway.RawEvent{
			"work": {
				{ID: "nostart", Summary: "missing start"},
				rawTimed("ok", now.Add(time.Hour), now.Add(2*time.Hour)),
			},
		},
	}

	events, err := FetchDay(context.Background(), src, time.UTC, 5, now)
	if err != nil {
		t.Fatalf("FetchDay: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ok" {
		t.Fatalf("events = %v, want just ok", events)
	}
}

func TestFetchDayAbortsWhenCalendarListFails(t *testing.T) {
	src := &fakeSource{calErr: errors.New("auth expired")}

	_, err := FetchDay(context.Background(), src, time.UTC, 5, time.Now())
	if err == nil {
		t.Fatal("expected error when the calendar list is unavailable")
	}
}

func newTestEngine(src gateway.Source, clk clock.Clock, p notify.Presenter, warningMinutes int) (*Engine, *timeline.Timeline, *notify.Scheduler) {
	tl := timeline.New(5)
	rules := notify.NewRuleEngine(warningMinutes, 100)
	sched := notify.NewScheduler(p, time.Minute)
	cfg := Config{
		Location:   time.UTC,
		MaxEvents:  5,
		StatusTick: 5 * time.Millisecond,
		RuleTick:   5 * time.Millisecond,
		DrainTick:  5 * time.Millisecond,
	}
	return New(cfg, src, clk, tl, rules, sched), tl, sched
}

// Run's initial refresh populates the timeline, and a fetch failure on a
// later refresh keeps the previous snapshot. The timeline is only inspected
// after Run has returned, since it is owned by the reactor goroutine.
func TestRunRefreshKeepsPreviousSnapshotOnError(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{
		calendars: []gateway.Calendar{{ID: "work"}},
		events: map[string][]gateway.RawEvent{
			"work": {rawTimed("w1", now.Add(time.Hour), now.Add(2*time.Hour))},
		},
	}

	eng, tl, _ := newTestEngine(src, clock.NewFixed(now), &recordingPresenter{}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	waitFor(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.listCalls >= 1
	})
	// Let the reactor consume the initial fetch result.
	time.Sleep(20 * time.Millisecond)

	src.mu.Lock()
	src.calErr = errors.New("network down")
	src.mu.Unlock()

	eng.RequestRefresh()
	waitFor(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.listCalls >= 2
	})
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
	if tl.Len() != 1 {
		t.Errorf("timeline lost its snapshot after a failed refresh: len=%d", tl.Len())
	}
}

// An event inside the warning window must surface through the rule tick as
// an active alert, and DismissActive must clear it.
func TestRunAlertLifecycle(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{
		calendars: []gateway.Calendar{{ID: "work"}},
		events: map[string][]gateway.RawEvent{
			"work": {rawTimed("soon", now.Add(10*time.Minute), now.Add(time.Hour))},
		},
	}

	p := &recordingPresenter{}
	eng, _, sched := newTestEngine(src, clock.NewFixed(now), p, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	waitFor(t, func() bool {
		shown, _ := p.snapshot()
		return len(shown) >= 1
	})

	shown, _ := p.snapshot()
	if shown[0].EventID != "soon" || shown[0].Kind != model.KindWarning {
		t.Fatalf("shown = %+v, want warning for soon", shown[0])
	}

	eng.DismissActive()
	waitFor(t, func() bool {
		_, hides := p.snapshot()
		return hides >= 1
	})

	cancel()
	<-done
	if _, ok := sched.Active(); ok {
		t.Error("alert still active after dismissal")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
