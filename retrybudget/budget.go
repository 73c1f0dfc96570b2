// Package retrybudget limits how many retries a group of callers may spend.
//
// A Budget is a token bucket shared by every policy it is attached to. The
// first attempt of a call is always free; each retry after it takes a token.
// When the bucket is empty the call ends with a *retry.RetriesExhaustedError
// whose Reason is retry.ReasonThrottled, which keeps a failing dependency
// from being hit by every caller's full retry allowance at once.
package retrybudget

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/bjaus/retry/v2"
)

// ErrDepleted is returned by Wait when a non-blocking budget has no tokens.
var ErrDepleted = errors.New("retry budget depleted")

// Budget is a shared retry allowance. It is safe for concurrent use.
type Budget struct {
	limiter  *rate.Limiter
	blocking bool
}

// Option configures a Budget.
type Option func(*Budget)

// Blocking makes Wait block until a token is available or the context is
// done, instead of failing fast.
func Blocking() Option {
	return func(b *Budget) {
		b.blocking = true
	}
}

// New returns a budget that refills at r tokens per second and holds at most
// burst tokens. It starts full.
func New(r rate.Limit, burst int, opts ...Option) *Budget {
	b := &Budget{limiter: rate.NewLimiter(r, burst)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Wait takes one token. It implements retry.Throttle.
func (b *Budget) Wait(ctx context.Context) error {
	if b.blocking {
		return b.limiter.Wait(ctx)
	}
	if !b.limiter.Allow() {
		return ErrDepleted
	}
	return nil
}

// Tokens reports the tokens currently available.
func (b *Budget) Tokens() float64 {
	return b.limiter.Tokens()
}

// Option attaches the budget to a policy or a single call.
func (b *Budget) Option() retry.Option {
	return retry.WithThrottle(b)
}
