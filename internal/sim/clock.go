package sim

import (
	"sync"
	"time"
)

// Clock is the simulator's virtual time source. Operations carry an offset
// from the scenario start; the clock only ever moves forward.
type Clock struct {
	mu   sync.Mutex
	base time.Time
	now  time.Time
}

func NewClock(base time.Time) *Clock {
	return &Clock{base: base, now: base}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AdvanceTo moves the clock to base+offset unless it is already past it.
func (c *Clock) AdvanceTo(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.base.Add(offset)
	if target.After(c.now) {
		c.now = target
	}
}
