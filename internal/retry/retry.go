// Package retry provides bounded retry with exponential backoff for camera
// hardware operations.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config controls how many times an operation is retried and how long to wait
// between attempts.
type Config struct {
	MaxRetries    int           // Retries after the first attempt (0 = single attempt)
	RetryDelay    time.Duration // Delay before the first retry
	MaxRetryDelay time.Duration // Cap on the exponential delay
	Logger        *slog.Logger  // Retry log sink (nil = slog.Default())
}

// CloseConfig is the policy for closing a camera during a facing switch: one
// retry after a short pause.
func CloseConfig() Config {
	return Config{
		MaxRetries:    1,
		RetryDelay:    50 * time.Millisecond,
		MaxRetryDelay: 50 * time.Millisecond,
	}
}

// Func is an operation that may be retried.
type Func func(ctx context.Context) error

// Do runs fn until it succeeds, the retries are exhausted or ctx is done.
//
// Backoff schedule: RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
//
// Returns nil on success, ctx.Err() on cancellation, or the last error of fn
// wrapped with the attempt count.
func Do(ctx context.Context, name string, cfg Config, fn Func) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		attempts++
		if err == nil {
			if attempts > 1 {
				logger.Info("retry: operation succeeded after retry", "op", name, "attempts", attempts)
			}
			return nil
		}

		if attempts > cfg.MaxRetries {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
		}

		delay := Backoff(attempts, cfg)
		logger.Warn("retry: operation failed, retrying",
			"op", name,
			"attempt", attempts,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Backoff returns the delay before retry number attempt (1-based).
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if cfg.MaxRetryDelay > 0 && delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
