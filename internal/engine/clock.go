package engine

import "sync/atomic"

// SeqClock hands out cycle sequence numbers.
// Implemented by Clock and testutil.DeterministicClock.
type SeqClock interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock for cycle ordering.
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
