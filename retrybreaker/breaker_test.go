package retrybreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/retry/v2"
)

var errTest = errors.New("test error")

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Time{} }
func (instantClock) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newBreaker(failures uint32) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "inventory",
		Timeout: time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
}

func TestWrapStopsWhenCircuitOpens(t *testing.T) {
	cb := newBreaker(2)
	calls := 0

	res, err := retry.Run(context.Background(), nil, Wrap(cb, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTest
	}), retry.WithMaxAttempts(5), retry.WithClock(instantClock{}))

	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsRejected(err))
	assert.NotErrorIs(t, err, retry.ErrExhausted)
	assert.Contains(t, err.Error(), "circuit breaker inventory open")

	assert.Equal(t, 2, calls)
	assert.Len(t, res.Attempts, 3)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestWrapRetryWhenOpen(t *testing.T) {
	cb := newBreaker(2)
	calls := 0

	_, err := retry.Run(context.Background(), nil, Wrap(cb, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTest
	}, RetryWhenOpen()), retry.WithMaxAttempts(5), retry.WithClock(instantClock{}))

	require.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
}

func TestWrapPassesValueThrough(t *testing.T) {
	cb := newBreaker(5)
	calls := 0

	res, err := retry.Run(context.Background(), nil, Wrap(cb, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errTest
		}
		return "in stock", nil
	}), retry.WithClock(instantClock{}))

	require.NoError(t, err)
	assert.Equal(t, "in stock", res.Value)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestWrapKeepsOperationErrors(t *testing.T) {
	cb := newBreaker(10)

	_, err := retry.Run(context.Background(), nil, Wrap(cb, func(ctx context.Context) (int, error) {
		return 0, retry.Stop(errTest)
	}))

	assert.Same(t, errTest, err)
	assert.False(t, IsRejected(err))
}

func TestWrapNilInterfaceValue(t *testing.T) {
	cb := newBreaker(10)

	res, err := retry.Run(context.Background(), nil, Wrap(cb, func(ctx context.Context) (error, error) {
		return nil, nil
	}))

	require.NoError(t, err)
	assert.Nil(t, res.Value)
}
