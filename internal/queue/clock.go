package queue

import (
	"sync"
	"time"
)

// Clock abstracts the monotonic clock consulted by the dispatcher and by
// Enqueue's run_at computation (spec §5: "Always a monotonic clock. Wall
// clock time is never used for scheduling decisions."). time.Time values
// returned by time.Now() already carry a monotonic reading in Go, so the
// real implementation is a thin wrapper; the fake implementation lets tests
// control dispatch order and backoff delays without real sleeps.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock, backed by time.Now().
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is a Clock whose value only changes when Advance is called. It
// lets tests assert exact dispatch order and backoff delays without real
// sleeps or flaky timing windows.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a FakeClock starting at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
