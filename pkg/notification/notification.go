// Package notification delivers idle and activity events to the user.
package notification

import "time"

// Notification represents a notification to be sent.
type Notification struct {
	Title   string
	Message string
	Time    time.Time
	// Watcher names the idle watcher that produced the notification.
	Watcher string
	// Tags are passed through to backends that support them (ntfy).
	Tags []string
}

// Notifier sends notifications.
type Notifier interface {
	Send(notification Notification) error
}
