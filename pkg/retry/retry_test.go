package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"igwatcher/pkg/config"
	errs "igwatcher/pkg/errors"
	"igwatcher/pkg/logger"
)

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewTestLogger(),
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0, // No jitter for predictable testing
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
		{0, 0, "Zero attempt"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 10; i++ {
		delays[backoff.NextDelay(2)] = true
	}

	if len(delays) < 2 {
		t.Error("Expected jitter to produce varying delays")
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, testConfig(3))

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, 0, "connection reset")
		}
		return nil
	}, testConfig(5))

	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	authErr := errs.New(errs.ErrorTypeAuth, 401, "login required")
	err := Do(func() error {
		calls++
		return authErr
	}, testConfig(5))

	if !errors.Is(err, authErr) {
		t.Fatalf("Expected the auth error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeServerError, 503, "unavailable")
	}, testConfig(3))

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig(0) // unlimited attempts
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}

	err := Do(func() error {
		return errs.New(errs.ErrorTypeNetwork, 0, "timeout")
	}, cfg)

	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected cancellation error, got %v", err)
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", errs.New(errs.ErrorTypeRateLimit, 429, "slow down")
		}
		return "done", nil
	}, testConfig(3))

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result != "done" {
		t.Errorf("Expected result 'done', got %q", result)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"network error", errs.New(errs.ErrorTypeNetwork, 0, "reset"), true},
		{"rate limit error", errs.New(errs.ErrorTypeRateLimit, 429, "limited"), true},
		{"auth error", errs.New(errs.ErrorTypeAuth, 401, "denied"), false},
		{"not found", errs.New(errs.ErrorTypeNotFound, 404, "gone"), false},
		{"context cancelled", context.Canceled, false},
		{"plain error", errors.New("something"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := DefaultRetryIf(test.err); got != test.expected {
				t.Errorf("Expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	appCfg := config.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Multiplier:  3.0,
	}

	cfg := FromConfig(context.Background(), appCfg, logger.NewTestLogger())

	if cfg.MaxAttempts != 5 {
		t.Errorf("Expected 5 max attempts, got %d", cfg.MaxAttempts)
	}
	eb, ok := cfg.Backoff.(*ExponentialBackoff)
	if !ok {
		t.Fatal("Expected exponential backoff")
	}
	if eb.BaseDelay != time.Second || eb.Multiplier != 3.0 {
		t.Error("Backoff settings do not match configuration")
	}
}
