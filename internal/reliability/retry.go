package reliability

import (
	"context"
	"time"
)

// RetryConfig bounds a retry loop. A Multiplier of 1 (or less) keeps the
// backoff fixed; anything above grows it exponentially up to MaxBackoff.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
	Multiplier  float64
	MaxBackoff  time.Duration
}

// Retry runs fn up to MaxAttempts times, sleeping between attempts. It stops
// early when fn succeeds, when isRetryable (if set) rejects the error, or when
// ctx is cancelled. The last error is returned on exhaustion.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error, isRetryable func(error) bool) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = cfg.Backoff
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.Backoff
		if cfg.Multiplier > 1 {
			delay = ExponentialBackoff(attempt, cfg.Backoff, cfg.MaxBackoff)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}
	}
	return lastErr
}
