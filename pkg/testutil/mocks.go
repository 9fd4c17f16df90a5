// Package testutil provides fakes shared by tests across packages.
package testutil

import (
	"sync"

	"github.com/Veraticus/useridle/pkg/notification"
)

// MockNotifier is a thread-safe notification.Notifier that records what it
// is asked to send.
type MockNotifier struct {
	mu            sync.Mutex
	notifications []notification.Notification
	attempts      []notification.Notification
	sendErr       error
	sent          chan struct{}
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		sent: make(chan struct{}, 64),
	}
}

// Send implements the Notifier interface
func (m *MockNotifier) Send(n notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts = append(m.attempts, n)
	if m.sendErr != nil {
		return m.sendErr
	}

	m.notifications = append(m.notifications, n)
	select {
	case m.sent <- struct{}{}:
	default:
	}
	return nil
}

// Sent returns a channel that receives a value after every successful Send.
func (m *MockNotifier) Sent() <-chan struct{} {
	return m.sent
}

// GetNotifications returns a copy of successfully sent notifications
func (m *MockNotifier) GetNotifications() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}

// GetAttempts returns a copy of all attempted sends (including failures)
func (m *MockNotifier) GetAttempts() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// SetError sets the error to return on Send calls
func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}
