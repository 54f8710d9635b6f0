package testutil

import "sync"

// StepClock is a dispatch.Sequencer whose position a test controls. Two
// runs of one scenario on fresh StepClocks stamp identical sequences.
type StepClock struct {
	mu   sync.Mutex
	last int64
}

// NewStepClock returns a clock whose next Next call returns start+1.
func NewStepClock(start int64) *StepClock {
	return &StepClock{last: start}
}

func (c *StepClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last++
	return c.last
}

func (c *StepClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Rewind moves the clock back (or forward) so the next wave gets seq+1.
func (c *StepClock) Rewind(seq int64) {
	c.mu.Lock()
	c.last = seq
	c.mu.Unlock()
}
