package resolver

import (
	"sync"
	"time"
)

// Clock abstracts time for deterministic delay simulation in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// systemClock delegates to the time package.
type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// StubClock is a test clock: Now returns a fixed, manually advanced instant
// and After fires immediately while recording the requested durations.
type StubClock struct {
	mu     sync.Mutex
	now    time.Time
	afters []time.Duration
}

// NewStubClock creates a StubClock starting at the given instant.
func NewStubClock(start time.Time) *StubClock {
	return &StubClock{now: start}
}

// Now implements Clock.
func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the stub clock forward.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// After implements Clock. The returned channel fires immediately; the
// requested duration is recorded and the clock advanced by it, so tests can
// assert on simulated waits without real sleeping.
func (c *StubClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.afters = append(c.afters, d)
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Waits returns every duration passed to After, in order.
func (c *StubClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.afters...)
}
