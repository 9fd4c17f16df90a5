// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import "time"

// IdleDetector reports user activity/inactivity.
type IdleDetector interface {
	IsUserIdle(threshold time.Duration) (bool, error)
	LastActivity() time.Time
}

// InputHandler receives raw bytes typed by the user.
type InputHandler interface {
	HandleInput(data []byte)
}

// RateLimiter limits notification frequency.
type RateLimiter interface {
	Allow() bool
}
