package dispatch

import "sync/atomic"

// Sequencer issues wave sequence numbers. *Clock is the production
// implementation.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is the monotonic logical clock that stamps waves.
//
// Every wave gets a strictly increasing sequence number so traces sort
// deterministically without relying on wall-clock time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
