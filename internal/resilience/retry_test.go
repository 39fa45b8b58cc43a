package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/leadflow/internal/errs"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

func TestDoVal_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastConfig(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errs.NewExternal("registry", context.DeadlineExceeded)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastConfig(), func(context.Context) (int, error) {
		calls++
		return 0, errs.NewExternal("registry", context.DeadlineExceeded)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errs.IsExternal(err))
}

func TestDoVal_NoRetryOnPermanentError(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastConfig(), func(context.Context) (int, error) {
		calls++
		return 0, errs.NewNotFound("carrier", "MC-12345")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := DoVal(ctx, fastConfig(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errs.NewExternal("registry", context.Canceled)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	cfg := fastConfig()
	var attempts []int
	cfg.OnRetry = func(attempt int, err error) { attempts = append(attempts, attempt) }

	_ = Do(context.Background(), cfg, func(context.Context) error {
		return errs.NewExternal("registry", context.DeadlineExceeded)
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestCycleBackoff_Deterministic(t *testing.T) {
	base := 15 * time.Minute

	assert.Equal(t, 15*time.Minute, CycleBackoff(base, 0))
	assert.Equal(t, 30*time.Minute, CycleBackoff(base, 1))
	assert.Equal(t, 60*time.Minute, CycleBackoff(base, 2))
	assert.Equal(t, 240*time.Minute, CycleBackoff(base, 4))

	// Defaults and caps.
	assert.Equal(t, 15*time.Minute, CycleBackoff(0, 0))
	assert.Equal(t, CycleBackoff(base, 16), CycleBackoff(base, 100))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errs.NewExternal("feed", context.DeadlineExceeded)))
	assert.False(t, IsTransient(errs.NewValidation("phone", "bad")))
	assert.False(t, IsTransient(errs.NewNotFound("rate", "reefer/300")))
	assert.False(t, IsTransient(nil))
}
