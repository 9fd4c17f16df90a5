package notification

import (
	"sync"
	"time"
)

// Batcher groups notifications that arrive within a time window, so that
// several watchers firing on the same poll produce one message.
type Batcher struct {
	window   time.Duration
	callback func([]Notification)

	mu      sync.Mutex
	pending []Notification
	timer   *time.Timer
}

// NewBatcher creates a batcher that hands each batch to callback.
func NewBatcher(window time.Duration, callback func([]Notification)) *Batcher {
	return &Batcher{
		window:   window,
		callback: callback,
	}
}

// Add queues n, starting the window if it is the first pending item.
func (b *Batcher) Add(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, n)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.flush)
	}
}

// Flush immediately delivers any pending notifications.
func (b *Batcher) Flush() {
	b.flush()
}

func (b *Batcher) flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	toSend := b.pending
	b.pending = nil
	b.mu.Unlock()

	// Callback runs outside the lock so it may call Add.
	if len(toSend) > 0 {
		b.callback(toSend)
	}
}
