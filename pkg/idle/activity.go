package idle

import (
	"fmt"
	"strings"
	"time"
)

// ActivityKind identifies the type of input signal that counts as activity.
// The string values match the DOM event names they originate from.
type ActivityKind string

const (
	KindKeyDown     ActivityKind = "keydown"
	KindKeyPress    ActivityKind = "keypress"
	KindPointerMove ActivityKind = "mousemove"
	KindPointerDown ActivityKind = "mousedown"
	KindWheel       ActivityKind = "wheel"
	KindResize      ActivityKind = "resize"
	KindTouchStart  ActivityKind = "touchstart"
	KindTouchMove   ActivityKind = "touchmove"
)

// AllKinds returns every activity kind, in subscription order.
func AllKinds() []ActivityKind {
	return []ActivityKind{
		KindKeyDown,
		KindKeyPress,
		KindPointerMove,
		KindPointerDown,
		KindWheel,
		KindResize,
		KindTouchStart,
		KindTouchMove,
	}
}

// ParseKind converts a name such as "keydown" into an ActivityKind.
func ParseKind(name string) (ActivityKind, error) {
	k := ActivityKind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllKinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown activity kind %q", name)
}

// Activity is a single discrete input event.
type Activity struct {
	Kind ActivityKind
	// At is when the source observed the event. The monitor stamps resets
	// with its own clock; At is informational.
	At time.Time
}

// ActivitySource delivers activity events to a monitor. The channel is
// closed when the source shuts down.
type ActivitySource interface {
	Activity() <-chan Activity
}
