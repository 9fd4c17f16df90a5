// Package activity provides sources of user input activity for an
// idle.Monitor.
package activity

import (
	"sync"

	"github.com/Veraticus/useridle/pkg/idle"
)

// DefaultBuffer is the channel capacity used when a source is created with
// a non-positive buffer.
const DefaultBuffer = 16

// Feed is an ActivitySource fed by explicit Emit calls. Other sources in
// this package are built on it, and tests use it directly.
type Feed struct {
	clock idle.Clock
	ch    chan idle.Activity

	mu     sync.RWMutex
	closed bool
}

// Ensure Feed implements idle.ActivitySource
var _ idle.ActivitySource = (*Feed)(nil)

// NewFeed creates a feed that stamps events with clock.
func NewFeed(clock idle.Clock, buffer int) *Feed {
	if clock == nil {
		clock = idle.SystemClock
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed{
		clock: clock,
		ch:    make(chan idle.Activity, buffer),
	}
}

// Activity returns the event channel.
func (f *Feed) Activity() <-chan idle.Activity {
	return f.ch
}

// Emit queues an event of the given kind. It never blocks: when the buffer
// is full the event is dropped, which loses nothing because the events
// already queued will reset the monitor anyway. It reports whether the
// event was queued.
func (f *Feed) Emit(kind idle.ActivityKind) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return false
	}

	select {
	case f.ch <- idle.Activity{Kind: kind, At: f.clock.Now()}:
		return true
	default:
		return false
	}
}

// Close closes the event channel. Further Emit calls are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}
