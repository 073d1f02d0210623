// Package testutil provides deterministic test doubles shared across
// packages: a manual wall clock and a log-file appender.
package testutil

import (
	"sync"
	"time"
)

// ManualClock is a controllable wall clock for tests. Time only moves when
// Advance or Set is called, which makes timeout behavior exact: tests can
// sit one millisecond on either side of a deadline.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, so a clock can be shared with an engine goroutine.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current frozen time. Pass the method value as the
// engine's clock source: engine.WithNow(clock.Now).
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
