package notification

import (
	"sync"
	"time"

	"github.com/Veraticus/useridle/pkg/interfaces"
)

// Ensure TokenBucketRateLimiter implements RateLimiter
var _ interfaces.RateLimiter = (*TokenBucketRateLimiter)(nil)

// TokenBucketRateLimiter allows up to capacity notifications, regaining one
// token every refillRate.
type TokenBucketRateLimiter struct {
	capacity   int
	tokens     int
	refillRate time.Duration
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucketRateLimiter creates a full bucket. A negative capacity is
// treated as zero; a non-positive refillRate never refills.
func NewTokenBucketRateLimiter(capacity int, refillRate time.Duration) *TokenBucketRateLimiter {
	return newTokenBucketRateLimiter(capacity, refillRate, time.Now)
}

func newTokenBucketRateLimiter(capacity int, refillRate time.Duration, now func() time.Time) *TokenBucketRateLimiter {
	capacity = max(capacity, 0)
	return &TokenBucketRateLimiter{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucketRateLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	if tb.refillRate > 0 {
		if add := int(now.Sub(tb.lastRefill) / tb.refillRate); add > 0 {
			tb.tokens = min(tb.capacity, tb.tokens+add)
			tb.lastRefill = tb.lastRefill.Add(time.Duration(add) * tb.refillRate)
		}
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}
