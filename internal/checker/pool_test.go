package checker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"igwatcher/pkg/logger"
	"igwatcher/pkg/profile"
	"igwatcher/pkg/ratelimit"
)

// mockChecker counts checks and returns a canned observation per username.
type mockChecker struct {
	delay      time.Duration
	checkError error
	calls      int32
}

func (m *mockChecker) CheckProfile(ctx context.Context, username string) (*profile.Observation, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.checkError != nil {
		return nil, m.checkError
	}
	return &profile.Observation{
		Snapshot: profile.Snapshot{
			Username:  username,
			Timestamp: time.Now(),
		},
		PictureUpdated: true,
	}, nil
}

func (m *mockChecker) callCount() int {
	return int(atomic.LoadInt32(&m.calls))
}

func collectResults(t *testing.T, pool *WorkerPool, expected int) []CheckResult {
	t.Helper()

	done := make(chan []CheckResult)
	go func() {
		var results []CheckResult
		for result := range pool.Results() {
			results = append(results, result)
		}
		done <- results
	}()

	pool.Stop()

	select {
	case results := <-done:
		if len(results) != expected {
			t.Fatalf("Expected %d results, got %d", expected, len(results))
		}
		return results
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for results")
		return nil
	}
}

func TestWorkerPoolProcessesAllJobs(t *testing.T) {
	checker := &mockChecker{delay: 5 * time.Millisecond}
	limiter := ratelimit.NewTokenBucket(6000, 10)
	pool := NewWorkerPool(context.Background(), 3, checker, limiter, logger.NewTestLogger())

	pool.Start()

	usernames := []string{"usera", "userb", "userc", "userd", "usere"}
	for _, username := range usernames {
		if err := pool.Submit(CheckJob{Username: username}); err != nil {
			t.Fatalf("Failed to submit job: %v", err)
		}
	}

	results := collectResults(t, pool, len(usernames))

	if checker.callCount() != len(usernames) {
		t.Errorf("Expected %d checks, got %d", len(usernames), checker.callCount())
	}

	seen := make(map[string]bool)
	for _, result := range results {
		if result.Err != nil {
			t.Errorf("Unexpected error for %s: %v", result.Job.Username, result.Err)
		}
		if result.Observation == nil {
			t.Errorf("Expected observation for %s", result.Job.Username)
			continue
		}
		seen[result.Observation.Username] = true
	}
	for _, username := range usernames {
		if !seen[username] {
			t.Errorf("Missing result for %s", username)
		}
	}
}

func TestWorkerPoolReportsErrors(t *testing.T) {
	checkErr := errors.New("profile unavailable")
	checker := &mockChecker{checkError: checkErr}
	pool := NewWorkerPool(context.Background(), 2, checker, nil, logger.NewTestLogger())

	pool.Start()

	if err := pool.Submit(CheckJob{Username: "usera"}); err != nil {
		t.Fatalf("Failed to submit job: %v", err)
	}

	results := collectResults(t, pool, 1)

	if !errors.Is(results[0].Err, checkErr) {
		t.Errorf("Expected check error, got %v", results[0].Err)
	}
	if results[0].Observation != nil {
		t.Error("Expected no observation on failure")
	}
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	checker := &mockChecker{}
	pool := NewWorkerPool(ctx, 1, checker, nil, logger.NewTestLogger())

	cancel()

	// Give the cancel time to propagate through the pool context.
	time.Sleep(10 * time.Millisecond)

	// The buffered queue may still accept a couple of jobs; keep
	// submitting until the shutdown error surfaces.
	var submitErr error
	for i := 0; i < 10; i++ {
		if submitErr = pool.Submit(CheckJob{Username: "usera"}); submitErr != nil {
			break
		}
	}
	if submitErr == nil {
		t.Error("Expected submit to fail after cancellation")
	}
}

func TestWorkerPoolRecordsDuration(t *testing.T) {
	checker := &mockChecker{delay: 20 * time.Millisecond}
	pool := NewWorkerPool(context.Background(), 1, checker, nil, logger.NewTestLogger())

	pool.Start()
	if err := pool.Submit(CheckJob{Username: "usera"}); err != nil {
		t.Fatalf("Failed to submit job: %v", err)
	}

	results := collectResults(t, pool, 1)

	if results[0].Duration < 20*time.Millisecond {
		t.Errorf("Expected duration of at least 20ms, got %v", results[0].Duration)
	}
}
