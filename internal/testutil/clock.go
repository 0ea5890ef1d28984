// Package testutil provides deterministic clocks and ID generators shared
// by ledger tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the default starting instant for deterministic tests.
var Epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// SteppingClock is a thread-safe deterministic clock. Each call to Now
// returns the current instant and advances by a fixed step, so repeated
// runs produce identical timestamp sequences.
type SteppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewSteppingClock creates a clock starting at Epoch advancing one second
// per call.
func NewSteppingClock() *SteppingClock {
	return NewSteppingClockAt(Epoch, time.Second)
}

// NewSteppingClockAt creates a clock with an explicit start and step.
// A negative step produces decreasing timestamps, useful for exercising
// timestamp-order findings.
func NewSteppingClockAt(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{now: start, step: step}
}

// Now returns the current instant and advances the clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Set repositions the clock. The next Now call returns t.
func (c *SteppingClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }
