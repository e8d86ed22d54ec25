package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAllowsBurst(t *testing.T) {
	tb := NewTokenBucket(60, 3)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Expected request %d to be allowed within burst", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Expected request beyond burst to be denied")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	// 600 per minute = 10 per second, so a token accrues every 100ms.
	tb := NewTokenBucket(600, 1)

	if !tb.Allow() {
		t.Fatal("Expected first request to be allowed")
	}
	if tb.Allow() {
		t.Fatal("Expected second immediate request to be denied")
	}

	time.Sleep(150 * time.Millisecond)

	if !tb.Allow() {
		t.Error("Expected request to be allowed after refill interval")
	}
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(600, 1)

	if !tb.Allow() {
		t.Fatal("Expected first request to be allowed")
	}

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("Expected Wait to block for roughly a token interval, blocked %v", elapsed)
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	// One token per minute, so Wait would block for a long time.
	tb := NewTokenBucket(1, 1)
	if !tb.Allow() {
		t.Fatal("Expected first request to be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	if err == nil {
		t.Fatal("Expected Wait to return an error when context expires")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, 2)

	tb.Allow()
	tb.Allow()
	if tb.Allow() {
		t.Fatal("Expected bucket to be empty")
	}

	tb.Reset()

	if !tb.Allow() {
		t.Error("Expected request to be allowed after reset")
	}
}

func TestTokenBucketCapacityClamped(t *testing.T) {
	tb := NewTokenBucket(6000, 2)

	// Let plenty of time pass; tokens must not exceed capacity.
	time.Sleep(100 * time.Millisecond)

	allowed := 0
	for i := 0; i < 10; i++ {
		if tb.Allow() {
			allowed++
		}
	}

	if allowed > 3 {
		t.Errorf("Expected at most burst-size requests, got %d", allowed)
	}
}
