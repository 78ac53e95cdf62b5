package animation

import (
	"sync"
	"time"
)

// Clock drives the cooperative frame loop. Start arms the clock with a tick
// callback; Stop disarms it. A clock may be restarted after Stop.
type Clock interface {
	Start(tick func(now time.Time))
	Stop()
	Now() time.Time
}

// TickerClock ticks on a fixed wall-clock interval, the host frame clock
// for headless use. The default interval approximates 60 frames per second.
type TickerClock struct {
	Interval time.Duration

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
}

// NewTickerClock returns a clock ticking every interval. interval <= 0
// falls back to ~16ms.
func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TickerClock{Interval: interval}
}

func (c *TickerClock) Start(tick func(now time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil {
		return
	}

	c.ticker = time.NewTicker(c.Interval)
	c.done = make(chan struct{})
	go func(ticker *time.Ticker, done chan struct{}) {
		for {
			select {
			case now := <-ticker.C:
				tick(now)
			case <-done:
				return
			}
		}
	}(c.ticker, c.done)
}

func (c *TickerClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.done)
	c.ticker = nil
	c.done = nil
}

func (c *TickerClock) Now() time.Time {
	return time.Now()
}

// ManualClock advances only when told to, for deterministic tests.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	tick func(now time.Time)
}

// NewManualClock starts at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Start(tick func(now time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = tick
}

func (c *ManualClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = nil
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Running reports whether a tick callback is armed.
func (c *ManualClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick != nil
}

// Advance moves the clock forward and fires one tick.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	tick := c.tick
	now := c.now
	c.mu.Unlock()

	if tick != nil {
		tick(now)
	}
}
