// Package retrybreaker runs retried operations through a circuit breaker.
//
// Retrying against a dependency that is already known to be down only adds
// load. Wrap routes every attempt through a gobreaker.CircuitBreaker and,
// while the circuit rejects calls, ends the retry sequence with retry.Stop.
//
//	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "inventory"})
//	res, err := retry.Run(ctx, policy, retrybreaker.Wrap(cb, fetchStock))
package retrybreaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/bjaus/retry/v2"
)

type options struct {
	retryWhenOpen bool
}

// Option configures Wrap.
type Option func(*options)

// RetryWhenOpen keeps retrying while the circuit is open, relying on the
// backoff to outlast the breaker's timeout.
func RetryWhenOpen() Option {
	return func(o *options) {
		o.retryWhenOpen = true
	}
}

// Wrap returns an operation that executes op through cb.
func Wrap[T any](cb *gobreaker.CircuitBreaker, op retry.Operation[T], opts ...Option) retry.Operation[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context) (T, error) {
		var zero T

		v, err := cb.Execute(func() (interface{}, error) {
			return op(ctx)
		})
		if err != nil {
			if IsRejected(err) {
				err = fmt.Errorf("circuit breaker %s %s: %w", cb.Name(), cb.State(), err)
				if !o.retryWhenOpen {
					err = retry.Stop(err)
				}
			}
			// gobreaker hands back whatever op returned; keep the operation's
			// own value on failure for callers that inspect it.
			if t, ok := v.(T); ok {
				return t, err
			}
			return zero, err
		}

		t, _ := v.(T)
		return t, nil
	}
}

// IsRejected reports whether err means the breaker refused the call rather
// than the operation failing.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
