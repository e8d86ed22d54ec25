package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow reports whether a request may proceed right now.
	Allow() bool
	// Wait blocks until a request may proceed or the context is cancelled.
	Wait(ctx context.Context) error
	// Reset restores the limiter to its initial state.
	Reset()
}

// TokenBucket is a token bucket limiter with continuous refill. Tokens
// accumulate at a steady rate up to the burst capacity, so requests are
// spread evenly over time rather than clustered at refill boundaries.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a limiter allowing requestsPerMinute sustained
// throughput with bursts of up to burstSize requests. The bucket starts
// full.
func NewTokenBucket(requestsPerMinute, burstSize int) *TokenBucket {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burstSize < 1 {
		burstSize = 1
	}
	return &TokenBucket{
		capacity:   float64(burstSize),
		tokens:     float64(burstSize),
		refillRate: float64(requestsPerMinute) / 60.0,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available or the context is cancelled. On
// cancellation the context's error is returned and no token is consumed.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		tb.refill(now)

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		// Time until the next whole token accrues.
		deficit := 1 - tb.tokens
		wait := time.Duration(deficit / tb.refillRate * float64(time.Second))
		tb.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset refills the bucket to capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill accrues tokens for the time elapsed since the last refill.
// Callers must hold the mutex.
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}
