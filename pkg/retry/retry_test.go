package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts uint) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestDoStopsAtAttemptCeiling(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		return "", &HTTPError{Status: 401, Body: "unauthorized"}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 401, httpErr.Status)
}

func TestDoSucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &HTTPError{Status: 429, Body: "rate limited"}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestDoHonorsRetryablePredicate(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	p := fastPolicy(5)
	p.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		return "", permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestDoStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, fastPolicy(10), func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", context.Canceled
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
