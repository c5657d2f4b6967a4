package reward

import (
	"math/big"
	"sync"
	"time"
)

// Meter is the process-wide time-weighted reward factor. The factor is
// WAD-scaled, starts at zero, advances monotonically at a fixed per-second
// rate, and is never reset.
type Meter struct {
	mu     sync.Mutex
	factor *big.Int
	rate   *big.Int
	last   time.Time
	clock  func() time.Time
}

// NewMeter builds a meter advancing by ratePerSecond (WAD-scaled) each second.
func NewMeter(ratePerSecond *big.Int) *Meter {
	if ratePerSecond == nil {
		ratePerSecond = new(big.Int)
	}
	m := &Meter{
		factor: new(big.Int),
		rate:   new(big.Int).Set(ratePerSecond),
		clock:  time.Now,
	}
	m.last = m.clock()
	return m
}

// WithClock overrides the meter clock for deterministic tests.
func (m *Meter) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
	m.last = clock()
}

// Advance moves the factor forward for whole elapsed seconds and returns the
// new value. Sub-second remainders carry over to the next call.
func (m *Meter) Advance() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	elapsed := now.Sub(m.last)
	if elapsed <= 0 {
		return new(big.Int).Set(m.factor)
	}

	seconds := int64(elapsed / time.Second)
	if seconds > 0 {
		step := new(big.Int).Mul(m.rate, big.NewInt(seconds))
		m.factor.Add(m.factor, step)
		m.last = m.last.Add(time.Duration(seconds) * time.Second)
	}
	return new(big.Int).Set(m.factor)
}

// Factor returns the current factor without advancing it.
func (m *Meter) Factor() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.factor)
}
