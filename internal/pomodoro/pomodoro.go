// Package pomodoro implements the independent focus-timer phase counter:
// alternating focus/break phases over a fixed number of rounds. It does
// not interact with the timeline or the notification scheduler.
package pomodoro

import (
	"context"
	"sync"
	"time"
)

// Phase is the closed set of pomodoro phases.
type Phase int

const (
	PhaseFocus Phase = iota
	PhaseBreak
)

func (p Phase) String() string {
	switch p {
	case PhaseFocus:
		return "focus"
	case PhaseBreak:
		return "break"
	default:
		return "unknown"
	}
}

// Callbacks receive phase-counter updates. Nil funcs are skipped. All
// callbacks are invoked from the service's tick goroutine.
type Callbacks struct {
	// OnTick fires every second while running.
	OnTick func(remainingSeconds int, phase Phase, round int)
	// OnPhaseChange fires when a new phase begins, including the first.
	OnPhaseChange func(phase Phase, round int)
	// OnFinished fires when all rounds complete or the session stops.
	OnFinished func()
}

// Service is the pomodoro phase counter. Rounds are 1-based; each round is
// one focus phase followed by one break phase.
type Service struct {
	mu sync.Mutex
	cb Callbacks

	focusSeconds int
	breakSeconds int
	totalRounds  int

	phase     Phase
	round     int
	remaining int
	running   bool
	paused    bool
}

// NewService constructs an idle Service with the given callbacks.
func NewService(cb Callbacks) *Service {
	return &Service{
		cb:           cb,
		focusSeconds: 25 * 60,
		breakSeconds: 5 * 60,
		totalRounds:  4,
		phase:        PhaseFocus,
		round:        1,
	}
}

// Start begins a new session. Inputs are clamped to sensible ranges:
// focus 1..180 minutes, break 1..60 minutes, rounds 1..24.
func (s *Service) Start(focusMinutes, breakMinutes, rounds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.focusSeconds = clamp(focusMinutes, 1, 180) * 60
	s.breakSeconds = clamp(breakMinutes, 1, 60) * 60
	s.totalRounds = clamp(rounds, 1, 24)

	s.round = 1
	s.phase = PhaseFocus
	s.remaining = s.focusSeconds
	s.paused = false
	s.running = true

	s.emitPhaseChange()
	s.emitTick()
}

// Pause suspends the countdown without losing state.
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.paused {
		return
	}
	s.paused = true
}

// Resume continues a paused countdown.
func (s *Service) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || !s.paused {
		return
	}
	s.paused = false
}

// Skip advances to the next phase immediately.
func (s *Service) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.remaining = 0
	s.advancePhase()
}

// Reset restores the current phase's countdown to its full duration.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	if s.phase == PhaseFocus {
		s.remaining = s.focusSeconds
	} else {
		s.remaining = s.breakSeconds
	}
	s.emitTick()
}

// Stop ends the session entirely and fires OnFinished.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Run drives the per-second ticks until ctx is cancelled. Ticks while the
// service is idle or paused are no-ops, so Run can be started once at
// process startup.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step()
		}
	}
}

// State reports a snapshot of the counter.
func (s *Service) State() (phase Phase, round, remainingSeconds int, running, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase, s.round, s.remaining, s.running, s.paused
}

// step consumes one second of the current phase.
func (s *Service) step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.paused {
		return
	}

	if s.remaining > 0 {
		s.remaining--
	}
	s.emitTick()

	if s.remaining == 0 {
		s.advancePhase()
	}
}

// advancePhase moves to the next phase or round; the session stops after
// the final round's break. Caller holds s.mu.
func (s *Service) advancePhase() {
	if s.phase == PhaseFocus {
		s.phase = PhaseBreak
		s.remaining = s.breakSeconds
		s.emitPhaseChange()
		s.emitTick()
		return
	}

	if s.round >= s.totalRounds {
		s.stopLocked()
		return
	}
	s.round++
	s.phase = PhaseFocus
	s.remaining = s.focusSeconds
	s.emitPhaseChange()
	s.emitTick()
}

func (s *Service) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	s.paused = false
	if s.cb.OnFinished != nil {
		s.cb.OnFinished()
	}
}

func (s *Service) emitTick() {
	if s.cb.OnTick != nil {
		s.cb.OnTick(s.remaining, s.phase, s.round)
	}
}

func (s *Service) emitPhaseChange() {
	if s.cb.OnPhaseChange != nil {
		s.cb.OnPhaseChange(s.phase, s.round)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
