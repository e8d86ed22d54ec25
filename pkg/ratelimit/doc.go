// Package ratelimit paces outbound requests so the watcher stays well
// under Instagram's tolerance even when checking many profiles.
//
// The limiter is a token bucket with continuous refill: tokens trickle in
// at a steady per-minute rate instead of arriving in bursts at period
// boundaries, so a long run spreads its requests evenly. The bucket's
// capacity bounds how many requests can go out back to back after an idle
// stretch.
//
// Usage:
//
//	limiter := ratelimit.NewTokenBucket(30, 5) // 30 req/min, burst of 5
//
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // context cancelled while waiting
//	}
//	// proceed with request
package ratelimit
