package testutil

import (
	"sync"
	"time"

	"github.com/Veraticus/useridle/pkg/idle"
)

// ManualClock is an idle.Clock whose time only moves when Advance is called.
// Tickers created from it fire during Advance, dropping ticks the reader has
// not consumed the same way time.Ticker does.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

// Ensure ManualClock implements idle.Clock
var _ idle.Clock = (*ManualClock)(nil)

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker creates a ticker that fires every d of manual time.
func (c *ManualClock) NewTicker(d time.Duration) idle.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTicker{
		c:      make(chan time.Time, 1),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing any tickers that come due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := make([]*manualTicker, len(c.tickers))
	copy(tickers, c.tickers)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

// Tickers returns how many tickers have been created and not stopped.
func (c *ManualClock) Tickers() int {
	c.mu.Lock()
	tickers := make([]*manualTicker, len(c.tickers))
	copy(tickers, c.tickers)
	c.mu.Unlock()

	n := 0
	for _, t := range tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

type manualTicker struct {
	c      chan time.Time
	period time.Duration

	mu      sync.Mutex
	next    time.Time
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time {
	return t.c
}

func (t *manualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *manualTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.period <= 0 || now.Before(t.next) {
		return
	}
	for !now.Before(t.next) {
		t.next = t.next.Add(t.period)
	}

	select {
	case t.c <- now:
	default:
	}
}
