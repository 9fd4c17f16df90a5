package notification

import (
	"fmt"
	"io"
	"os"
)

// StdoutNotifier prints notifications to a writer, stdout by default.
// It is used when no ntfy topic is configured.
type StdoutNotifier struct {
	w io.Writer
}

// NewStdoutNotifier creates a notifier that writes to stdout.
func NewStdoutNotifier() *StdoutNotifier {
	return NewWriterNotifier(os.Stdout)
}

// NewWriterNotifier creates a notifier that writes to w.
func NewWriterNotifier(w io.Writer) *StdoutNotifier {
	return &StdoutNotifier{w: w}
}

// Send prints the notification on a single line.
func (n *StdoutNotifier) Send(notification Notification) error {
	_, err := fmt.Fprintf(n.w, "[useridle] %s: %s (watcher: %s)\n",
		notification.Title,
		notification.Message,
		notification.Watcher)
	return err
}
