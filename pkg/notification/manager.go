package notification

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/useridle/pkg/interfaces"
)

// Manager applies rate limiting and optional batching in front of a
// Notifier. It is itself a Notifier.
type Manager struct {
	notifier    Notifier
	rateLimiter interfaces.RateLimiter
	batcher     *Batcher
	logger      *slog.Logger

	mu sync.Mutex
}

// Ensure Manager implements Notifier
var _ Notifier = (*Manager)(nil)

// NewManager creates a manager. A nil rateLimiter allows everything; a
// batchWindow of zero sends immediately.
func NewManager(notifier Notifier, rateLimiter interfaces.RateLimiter, batchWindow time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		notifier:    notifier,
		rateLimiter: rateLimiter,
		logger:      logger,
	}

	if batchWindow > 0 {
		m.batcher = NewBatcher(batchWindow, m.sendBatch)
	}

	return m
}

// Send sends or batches a notification. Rate-limited notifications are
// dropped without error.
func (m *Manager) Send(notification Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rateLimiter != nil && !m.rateLimiter.Allow() {
		m.logger.Debug("notification rate limited", "watcher", notification.Watcher)
		return nil
	}

	if m.batcher != nil {
		m.batcher.Add(notification)
		return nil
	}

	return m.notifier.Send(notification)
}

// sendBatch combines a batch into a single notification. Batches of one are
// sent unchanged.
func (m *Manager) sendBatch(notifications []Notification) {
	n := notifications[0]
	if len(notifications) > 1 {
		n = Notification{
			Title:   "User idle: multiple watchers",
			Message: formatBatchMessage(notifications),
			Time:    notifications[len(notifications)-1].Time,
			Watcher: "batch",
		}
	}

	if err := m.notifier.Send(n); err != nil {
		m.logger.Warn("failed to send notification batch", "error", err, "size", len(notifications))
	}
}

// Close flushes any pending batch.
func (m *Manager) Close() error {
	if m.batcher != nil {
		m.batcher.Flush()
	}
	return nil
}

func formatBatchMessage(notifications []Notification) string {
	var b strings.Builder
	for i, n := range notifications {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(n.Watcher)
		b.WriteString(": ")
		b.WriteString(n.Message)
	}
	return b.String()
}
