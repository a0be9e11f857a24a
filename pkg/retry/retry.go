package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// HTTPError is returned by provider clients for non-2xx responses so callers
// can inspect the status after the retry ceiling is exhausted.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

// Policy is a reusable bounded-retry policy applied uniformly to embedding,
// OCR and generation calls. Retryable decides whether an error is worth
// another attempt; when nil every provider error is retried up to the
// ceiling. Context cancellation always stops immediately.
type Policy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration
	Retryable       func(error) bool
}

// DefaultPolicy mirrors the provider defaults: three attempts, 500ms initial
// backoff, 30s per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		AttemptTimeout:  30 * time.Second,
	}
}

// Do runs op under the policy and returns its result, or the last error once
// the attempt ceiling is reached.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	expo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		expo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		expo.MaxInterval = p.MaxInterval
	}

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	wrapped := func() (T, error) {
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}
		result, err := op(attemptCtx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) {
			return result, backoff.Permanent(err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(attempts),
	)
}
