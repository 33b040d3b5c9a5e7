package clock

import (
	"errors"
	"sync"
	"time"
)

// ErrNegativeDuration is returned by Mock.Advance for durations below zero.
var ErrNegativeDuration = errors.New("clock: cannot advance by a negative duration")

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a Clock that only moves when told to. It is safe for concurrent use.
type Mock struct {
	mu sync.RWMutex
	t  time.Time
}

// NewMock returns a Mock pinned at start. A zero start pins the clock at the
// current system time; from then on it stays put until Set or Advance.
func NewMock(start time.Time) *Mock {
	if start.IsZero() {
		start = time.Now()
	}
	return &Mock{t: start}
}

// Now returns the pinned time.
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t
}

// Set pins the clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = t
}

// Advance moves the clock forward by d. Negative durations are rejected and
// leave the clock unchanged.
func (m *Mock) Advance(d time.Duration) error {
	if d < 0 {
		return ErrNegativeDuration
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = m.t.Add(d)
	return nil
}
