package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter keeps unary API calls inside the venue's per-minute request
// quota. It is a token bucket with a burst allowance of one second's worth
// of quota: short call bursts (a snapshot of accounts plus a handful of
// asset lookups) go through back to back, and only sustained traffic is
// spread out to the quota rate.
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	burst    float64 // bucket capacity
	tokens   float64
	lastTime time.Time
}

// NewRateLimiter creates a RateLimiter for a venue quota of perMinute
// requests per minute.
func NewRateLimiter(perMinute int) *RateLimiter {
	rate := float64(perMinute) / 60.0
	burst := rate
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:     rate,
		burst:    burst,
		tokens:   burst,
		lastTime: time.Now(),
	}
}

// Wait blocks until a quota token is available or the context is cancelled.
// The wait is computed from the refill rate rather than polled, so a caller
// sleeps once per token.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens += now.Sub(rl.lastTime).Seconds() * rl.rate
		if rl.tokens > rl.burst {
			rl.tokens = rl.burst
		}
		rl.lastTime = now

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
