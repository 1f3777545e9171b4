package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MasterGowen/open-discussions/infrastructure/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
		IsRetryable:  func(error) bool { return true },
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(5)
	cfg.IsRetryable = retry.DefaultIsRetryable

	calls := 0
	permanent := errors.New("index_not_found_exception")
	err := retry.Do(context.Background(), cfg, func() error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	err := retry.Do(context.Background(), fastConfig(2), func() error {
		return errors.New("i/o timeout")
	})

	require.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
}

func TestDo_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Do(ctx, fastConfig(3), func() error { return nil })
	require.ErrorIs(t, err, retry.ErrContextCancelled)
}

func TestDefaultIsRetryable(t *testing.T) {
	t.Parallel()

	assert.False(t, retry.DefaultIsRetryable(nil))
	assert.True(t, retry.DefaultIsRetryable(errors.New("dial tcp: Connection Refused")))
	assert.False(t, retry.DefaultIsRetryable(errors.New("mapper_parsing_exception")))
}
