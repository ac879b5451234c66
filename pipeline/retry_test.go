package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/poliscope/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryTransientThenSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("%w: timeout", core.ErrTransient)
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhausted(t *testing.T) {
	transientErr := fmt.Errorf("%w: rate limited", core.ErrTransient)
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return transientErr
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, core.ErrTransient)
	assert.Equal(t, 3, attempts)
}

func TestRetryInputErrorNotRetried(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return fmt.Errorf("%w: empty document", core.ErrInput)
	}, 5, time.Millisecond)

	assert.True(t, core.IsInput(err))
	assert.Equal(t, 1, attempts)
}

func TestRetryConfigErrorNotRetried(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return fmt.Errorf("%w: dimension mismatch", core.ErrConfig)
	}, 5, time.Millisecond)

	assert.True(t, core.IsConfig(err))
	assert.Equal(t, 1, attempts)
}

func TestRetryInvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := RetryWithBackoff(ctx, func() error {
		attempts++
		return errors.New("should not run")
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, attempts)
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := RetryWithBackoff(ctx, func() error {
		attempts++
		cancel()
		return fmt.Errorf("%w: timeout", core.ErrTransient)
	}, 5, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
