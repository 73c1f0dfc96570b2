package retrybudget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/bjaus/retry/v2"
)

var errTest = errors.New("test error")

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Time{} }
func (instantClock) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func failing(calls *int) retry.Func {
	return func(ctx context.Context) error {
		*calls++
		return errTest
	}
}

func TestBudgetEndsRetriesWhenDepleted(t *testing.T) {
	budget := New(rate.Every(time.Hour), 1)
	policy := retry.New(retry.WithMaxAttempts(5), retry.WithClock(instantClock{}), budget.Option())

	calls := 0
	err := policy.Do(context.Background(), failing(&calls))

	require.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, ErrDepleted)
	assert.ErrorIs(t, err, errTest)

	var exhausted *retry.RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, retry.ReasonThrottled, exhausted.Reason)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Equal(t, 2, calls)
}

func TestBudgetIsSharedAcrossCalls(t *testing.T) {
	budget := New(rate.Every(time.Hour), 1)
	policy := retry.New(retry.WithMaxAttempts(3), retry.WithClock(instantClock{}), budget.Option())

	first := 0
	_ = policy.Do(context.Background(), failing(&first))
	assert.Equal(t, 2, first)

	second := 0
	err := policy.Do(context.Background(), failing(&second))
	assert.ErrorIs(t, err, ErrDepleted)
	assert.Equal(t, 1, second)
}

func TestBudgetDoesNotChargeFirstAttempt(t *testing.T) {
	budget := New(rate.Every(time.Hour), 1)

	for range 3 {
		err := retry.Do(context.Background(), func(ctx context.Context) error {
			return nil
		}, budget.Option())
		require.NoError(t, err)
	}
	assert.InDelta(t, 1.0, budget.Tokens(), 0.01)
}

func TestBudgetBlockingHonorsCancellation(t *testing.T) {
	budget := New(rate.Every(time.Hour), 1, Blocking())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	calls := 0
	err := retry.Do(ctx, failing(&calls),
		retry.WithMaxAttempts(5),
		retry.WithClock(instantClock{}),
		budget.Option(),
	)

	require.ErrorIs(t, err, retry.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestBudgetWait(t *testing.T) {
	budget := New(rate.Inf, 0)

	for range 10 {
		assert.NoError(t, budget.Wait(context.Background()))
	}
}
