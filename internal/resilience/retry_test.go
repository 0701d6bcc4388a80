package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var calls, retries int
	cfg := fastRetry(3)
	cfg.OnRetry = func(int, error) { retries++ }

	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("apify: 503"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		return errors.New("apify: 401 unauthorized")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("still busy"), 429)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "still busy")
}

func TestDo_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	var calls int
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func(context.Context) error {
			calls++
			return NewTransientError(errors.New("timeout"), 504)
		})
	}()
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastRetry(2), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("reset"), 0)
		}
		return "run-1", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", got)
}

func TestDoVal_CustomShouldRetry(t *testing.T) {
	sentinel := errors.New("retry me")
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, sentinel) }

	var calls int
	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2,
	}.withDefaults()

	assert.Equal(t, 100*time.Millisecond, cfg.backoff(0))
	assert.Equal(t, 400*time.Millisecond, cfg.backoff(2))
	assert.Equal(t, time.Second, cfg.backoff(10))

	cfg.JitterFraction = 0.5
	for range 50 {
		d := cfg.backoff(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestRetrySettings_RetryConfig(t *testing.T) {
	cfg := RetrySettings{MaxAttempts: 5, InitialBackoffMs: 200}.RetryConfig()
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 0.25, cfg.JitterFraction)
}

func TestRetryLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		RetryLogger("apify", "start_run")(1, errors.New("boom"))
	})
}
