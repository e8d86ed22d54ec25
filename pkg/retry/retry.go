package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igwatcher/pkg/config"
	errs "igwatcher/pkg/errors"
	"igwatcher/pkg/logger"
)

// Operation is a function that may need retrying.
type Operation func() error

// OperationWithResult is a function returning a result that may need
// retrying.
type OperationWithResult[T any] func() (T, error)

// Config holds retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited).
	MaxAttempts int
	// Backoff strategy between attempts.
	Backoff BackoffStrategy
	// RetryIf decides whether an error is worth another attempt.
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation.
	Context context.Context
	// Logger for retry attempts.
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// FromConfig builds a retry configuration from the application settings.
func FromConfig(ctx context.Context, cfg config.RetryConfig, log logger.Logger) *Config {
	return &Config{
		MaxAttempts: cfg.MaxAttempts,
		Backoff: &ExponentialBackoff{
			BaseDelay:    cfg.BaseDelay,
			MaxDelay:     cfg.MaxDelay,
			Multiplier:   cfg.Multiplier,
			JitterFactor: 0.1,
		},
		RetryIf: DefaultRetryIf,
		Context: ctx,
		Logger:  log,
	}
}

// DefaultRetryIf retries transient failures: typed errors whose class is
// retryable, and unknown errors. Context cancellation is never retried.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var typedErr *errs.Error
	if errors.As(err, &typedErr) {
		return errs.IsRetryable(typedErr.Type)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

// Do executes an operation with retries.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	attempt := 0

	for {
		attempt++

		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt - 1,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		lastErr = err

		if !cfg.RetryIf(err) {
			if cfg.Logger != nil {
				cfg.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return err
		}

		delay := cfg.Backoff.NextDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			})
		}

		if err := Wait(cfg.Context, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retries.
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}
