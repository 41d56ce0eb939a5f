// Package clock abstracts the source of "now" so that timeline status
// derivation and notification windows can be tested deterministically.
// Core packages take a Clock instead of calling time.Now directly.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real returns the actual system time. Use at application entry points.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Use in tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// Func wraps a function as a Clock, for tests that need advancing time.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// NewReal returns a Clock backed by the system time.
func NewReal() Clock { return Real{} }

// NewFixed returns a Clock pinned to t.
func NewFixed(t time.Time) Clock { return Fixed{T: t} }
