package notification

import (
	"fmt"
	"log/slog"
	"time"
)

// Alert describes the notifications sent on behalf of one idle watcher.
type Alert struct {
	Watcher string
	Timeout time.Duration
	// Message overrides the default idle message.
	Message string
	// NotifyOnActive also sends a notification when the user returns.
	NotifyOnActive bool
}

// Handlers returns callbacks suitable for idle.Monitor.SetIdle. onActive is
// nil unless NotifyOnActive is set. Send errors are logged; the callbacks
// never panic because they run inside the monitor's dispatch loop.
func (a Alert) Handlers(n Notifier, now func() time.Time, logger *slog.Logger) (onIdle, onActive func()) {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	send := func(notification Notification) {
		if err := n.Send(notification); err != nil {
			logger.Warn("failed to send notification",
				"watcher", a.Watcher,
				"error", err)
		}
	}

	onIdle = func() {
		send(Notification{
			Title:   "User idle: " + a.Watcher,
			Message: a.idleMessage(),
			Time:    now(),
			Watcher: a.Watcher,
			Tags:    []string{"zzz"},
		})
	}

	if a.NotifyOnActive {
		onActive = func() {
			send(Notification{
				Title:   "User active: " + a.Watcher,
				Message: "Input activity resumed",
				Time:    now(),
				Watcher: a.Watcher,
				Tags:    []string{"wave"},
			})
		}
	}

	return onIdle, onActive
}

func (a Alert) idleMessage() string {
	if a.Message != "" {
		return a.Message
	}
	return fmt.Sprintf("No input activity for %s", a.Timeout)
}
