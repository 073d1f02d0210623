package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every emitted event is stamped with a
// strictly increasing seq number from it, so journal rows and golden
// transcripts have a deterministic total order that wall time cannot give.
//
// Thread-safety: safe for concurrent use (atomic operations), although the
// engine's single-writer tick loop means only one goroutine normally calls
// Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
