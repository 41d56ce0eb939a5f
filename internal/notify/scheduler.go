package notify

import (
	"time"

	appLog "calwatch/internal/log"
	"calwatch/internal/model"
)

// Presenter is the exposed capability the scheduler drives. Both calls are
// fire-and-forget: the presenter renders or clears asynchronously and
// reports dismissal back through the engine's dismiss path.
type Presenter interface {
	ShowAlert(event model.CalendarEvent, kind model.NotificationKind)
	HideAlert()
}

// Scheduler owns at most one active alert plus a FIFO backlog of pending
// alerts. A new trigger becomes active immediately when nothing is showing;
// otherwise it is appended to the backlog unless an equal-identity record
// is already active or queued. The backlog is drained by a periodic tick.
//
// Invariant: either there is no active alert, or there is exactly one
// active alert with a running auto-dismiss timer. All methods must be
// called from the single control goroutine.
type Scheduler struct {
	presenter Presenter
	timeout   time.Duration

	active  *Trigger
	backlog []Trigger
	timer   *time.Timer
}

// NewScheduler constructs a Scheduler presenting through p and
// auto-dismissing after timeout.
func NewScheduler(p Presenter, timeout time.Duration) *Scheduler {
	return &Scheduler{
		presenter: p,
		timeout:   timeout,
	}
}

// Enqueue hands a new trigger to the scheduler. When idle it is shown
// immediately; while another alert is showing it is queued in arrival
// order, skipping identities already represented by the active alert or
// the backlog.
func (s *Scheduler) Enqueue(t Trigger) {
	if s.active == nil {
		s.show(t)
		return
	}

	if s.sameIdentity(s.active.Record, t.Record) {
		return
	}
	for _, queued := range s.backlog {
		if s.sameIdentity(queued.Record, t.Record) {
			return
		}
	}

	s.backlog = append(s.backlog, t)
	appLog.Info("notification queued",
		"event_id", t.Record.EventID,
		"kind", t.Record.Kind.String(),
		"backlog", len(s.backlog),
	)
}

// Drain promotes the oldest backlog entry to active if nothing is showing.
// Called on the periodic backlog-drain tick.
func (s *Scheduler) Drain() {
	if s.active != nil || len(s.backlog) == 0 {
		return
	}
	next := s.backlog[0]
	s.backlog = s.backlog[1:]
	s.show(next)
}

// Dismiss ends the active alert: the auto-dismiss timer is cancelled, the
// active record cleared, and the presenter told to hide. Manual dismissal
// and timeout both funnel through here.
func (s *Scheduler) Dismiss() {
	if s.active == nil {
		return
	}
	s.stopTimer()
	s.active = nil
	s.presenter.HideAlert()
}

// TimeoutC returns the auto-dismiss timer channel, or nil when no alert is
// active. A nil channel blocks forever in a select, so callers can select
// on it unconditionally.
func (s *Scheduler) TimeoutC() <-chan time.Time {
	if s.timer == nil {
		return nil
	}
	return s.timer.C
}

// Active returns the currently showing record, if any.
func (s *Scheduler) Active() (model.NotificationRecord, bool) {
	if s.active == nil {
		return model.NotificationRecord{}, false
	}
	return s.active.Record, true
}

// BacklogLen reports the number of pending alerts.
func (s *Scheduler) BacklogLen() int {
	return len(s.backlog)
}

// ClearBacklog drops all pending alerts without touching the active one.
func (s *Scheduler) ClearBacklog() {
	s.backlog = nil
}

func (s *Scheduler) show(t Trigger) {
	s.active = &t
	s.presenter.ShowAlert(t.Event, t.Record.Kind)
	s.timer = time.NewTimer(s.timeout)
	appLog.Info("notification showing",
		"event_id", t.Record.EventID,
		"kind", t.Record.Kind.String(),
		"title", t.Event.Title,
	)
}

func (s *Scheduler) stopTimer() {
	if s.timer == nil {
		return
	}
	if !s.timer.Stop() {
		// Timer already fired; discard the stale value if the control
		// loop has not consumed it yet.
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.timer = nil
}

func (s *Scheduler) sameIdentity(a, b model.NotificationRecord) bool {
	return a.EventID == b.EventID && a.Kind == b.Kind
}
