package llm

import (
	"context"
	"errors"

	"github.com/Declandp/market-research-agent/internal/backoff"
)

// generate runs fn under the common retry policy: transient failures are
// retried with exponential backoff up to cfg.MaxAttempts total attempts;
// non-transient failures and context cancellation surface immediately.
func generate(ctx context.Context, cfg Config, fn func(context.Context) (*Response, error)) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := backoff.Sleep(ctx, backoff.Delay(attempt-1, cfg.RetryBaseDelay)); err != nil {
				return nil, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		resp, err := fn(attemptCtx)
		cancel()

		if err == nil {
			return resp, nil
		}
		if !retryable(ctx, err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &ExhaustedError{Attempts: cfg.MaxAttempts, Cause: lastErr}
}

// retryable classifies an attempt error. Rate limits, server errors, and
// transport failures are transient. A deadline hit on the per-attempt
// context counts as a timeout of that attempt and is not retried, matching
// the adapter policy that timeouts surface directly.
func retryable(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return backoff.RetryableStatus(se.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrInvalidResponse) {
		return false
	}
	// Remaining failures are transport-level (connection refused, reset).
	return true
}
