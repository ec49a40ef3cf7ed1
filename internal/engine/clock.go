package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps placement decisions.
//
// Decision seq numbers give the trace a total order that is identical on
// every run over the same input. Safe for concurrent use, although the
// single-writer loop means only one goroutine calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
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
