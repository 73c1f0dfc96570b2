package retry

import (
	"context"
	"slices"
	"time"
)

// config holds all retry configuration.
type config struct {
	// Policy-level options
	Config
	backoff  Backoff
	clock    Clock
	throttle Throttle

	// Call-level options
	condition   Condition
	onAttempt   []OnAttemptFunc
	onRetry     []OnRetryFunc
	onSuccess   []OnSuccessFunc
	onExhausted []OnExhaustedFunc
	onStop      []OnStopFunc
	onCancelled []OnCancelledFunc
	allErrors   bool
}

// clone copies c so that hooks appended to the copy never reach the original.
func (c config) clone() config {
	c.onAttempt = slices.Clone(c.onAttempt)
	c.onRetry = slices.Clone(c.onRetry)
	c.onSuccess = slices.Clone(c.onSuccess)
	c.onExhausted = slices.Clone(c.onExhausted)
	c.onStop = slices.Clone(c.onStop)
	c.onCancelled = slices.Clone(c.onCancelled)
	return c
}

// Option configures retry behavior.
type Option func(*config)

// Options bundles several options into one. Integrations use it to install
// a set of hooks with a single argument.
func Options(opts ...Option) Option {
	return func(c *config) {
		for _, opt := range opts {
			if opt != nil {
				opt(c)
			}
		}
	}
}

// WithConfig replaces the policy-level Config wholesale.
func WithConfig(cfg Config) Option {
	return func(c *config) {
		c.Config = cfg
	}
}

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		c.MaxAttempts = n
	}
}

// WithBaseDelay sets the delay before the second attempt.
func WithBaseDelay(d time.Duration) Option {
	return func(c *config) {
		c.BaseDelay = d
	}
}

// WithMultiplier sets the growth factor applied per subsequent retry.
func WithMultiplier(m float64) Option {
	return func(c *config) {
		c.Multiplier = m
	}
}

// WithMaxDelay caps any single delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.MaxDelay = d
	}
}

// WithJitterStrategy randomizes every delay with j.
func WithJitterStrategy(j Jitter) Option {
	return func(c *config) {
		c.Jitter = j
	}
}

// WithMaxDuration sets the maximum total duration for all attempts.
// Retries stop when this duration is exceeded, even if attempts remain.
func WithMaxDuration(d time.Duration) Option {
	return func(c *config) {
		c.MaxDuration = d
	}
}

// WithBackoff replaces the exponential delay formula with b.
// MaxDelay and the jitter strategy still apply on top of it.
func WithBackoff(b Backoff) Option {
	return func(c *config) {
		c.backoff = b
	}
}

// WithClock sets the clock for time operations. Useful for testing.
func WithClock(clock Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithThrottle makes every retry wait on t after its backoff delay.
// A Throttle error other than the context's own ends the sequence.
func WithThrottle(t Throttle) Option {
	return func(c *config) {
		c.throttle = t
	}
}

// If sets the condition that determines whether an error should be retried.
// If the condition returns false, the retry loop stops immediately.
func If(cond Condition) Option {
	return func(c *config) {
		c.condition = cond
	}
}

// IfNot sets a condition where matching errors are NOT retried.
// This is equivalent to If(Not(cond)).
func IfNot(cond Condition) Option {
	return If(Not(cond))
}

// Not inverts a condition.
func Not(cond Condition) Condition {
	return func(err error) bool {
		return !cond(err)
	}
}

// OnAttempt adds a hook that is called after every attempt.
func OnAttempt(fn OnAttemptFunc) Option {
	return func(c *config) {
		c.onAttempt = append(c.onAttempt, fn)
	}
}

// OnRetry adds a hook that is called before each retry sleep.
func OnRetry(fn OnRetryFunc) Option {
	return func(c *config) {
		c.onRetry = append(c.onRetry, fn)
	}
}

// OnSuccess adds a hook that is called when the function succeeds.
func OnSuccess(fn OnSuccessFunc) Option {
	return func(c *config) {
		c.onSuccess = append(c.onSuccess, fn)
	}
}

// OnExhausted adds a hook that is called when the retry budget runs out.
// err is the *RetriesExhaustedError being returned.
func OnExhausted(fn OnExhaustedFunc) Option {
	return func(c *config) {
		c.onExhausted = append(c.onExhausted, fn)
	}
}

// OnStop adds a hook that is called when a Stop error or a failed If
// condition ends the sequence.
func OnStop(fn OnStopFunc) Option {
	return func(c *config) {
		c.onStop = append(c.onStop, fn)
	}
}

// OnCancelled adds a hook that is called when the context ends the sequence.
// err is the *CancelledError being returned.
func OnCancelled(fn OnCancelledFunc) Option {
	return func(c *config) {
		c.onCancelled = append(c.onCancelled, fn)
	}
}

// WithAllErrors configures the retry to collect all errors from each attempt.
// When enabled, the exhausted error wraps an errors.Join of all attempt errors.
// By default, only the last error is kept.
func WithAllErrors() Option {
	return func(c *config) {
		c.allErrors = true
	}
}

// Throttle gates retries across invocations. *rate.Limiter from
// golang.org/x/time/rate satisfies it.
type Throttle interface {
	Wait(ctx context.Context) error
}
