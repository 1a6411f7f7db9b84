package vm

import (
	"time"
)

// Clock frequency bounds in Hz.
const (
	ClockMinFrequency = 1
	ClockMaxFrequency = 10000
)

// Clock paces execution to a configurable frequency by sleeping between
// instruction cycles. It is a driver-side throttle: step semantics do
// not depend on it, and disabling it runs the machine at full speed.
type Clock struct {
	Enabled   bool
	frequency int
	cycleTime time.Duration
	lastTick  time.Time
	tickValid bool
	Cycles    uint64
}

// NewClock creates a clock at the given frequency (clamped to
// [1, 10000] Hz).
func NewClock(frequencyHz int, enabled bool) *Clock {
	c := &Clock{Enabled: enabled}
	c.SetFrequency(frequencyHz)
	return c
}

// Frequency returns the clock frequency in Hz.
func (c *Clock) Frequency() int { return c.frequency }

// SetFrequency sets the clock frequency, clamped to the valid range.
func (c *Clock) SetFrequency(hz int) {
	if hz < ClockMinFrequency {
		hz = ClockMinFrequency
	} else if hz > ClockMaxFrequency {
		hz = ClockMaxFrequency
	}
	c.frequency = hz
	c.cycleTime = time.Second / time.Duration(hz)
}

// Reset clears the timing baseline and cycle count.
func (c *Clock) Reset() {
	c.tickValid = false
	c.Cycles = 0
}

// Tick records one cycle and, when the clock is enabled, sleeps for
// whatever remains of the cycle period.
func (c *Clock) Tick() {
	c.Cycles++
	if !c.Enabled {
		return
	}

	now := time.Now()
	if !c.tickValid {
		c.lastTick = now
		c.tickValid = true
		return
	}

	next := c.lastTick.Add(c.cycleTime)
	if wait := next.Sub(now); wait > 0 {
		time.Sleep(wait)
		c.lastTick = next
	} else {
		// Running behind; do not try to catch up.
		c.lastTick = now
	}
}
