package retry

import (
	"context"
	"errors"
	"time"
)

// Func is the function signature for retryable operations.
type Func func(ctx context.Context) error

// Operation is a retryable operation that produces a value.
type Operation[T any] func(ctx context.Context) (T, error)

// Condition determines whether an error should be retried.
type Condition func(error) bool

// OnAttemptFunc is called after every attempt, successful or not.
type OnAttemptFunc func(ctx context.Context, attempt Attempt)

// OnRetryFunc is called before each retry sleep.
type OnRetryFunc func(ctx context.Context, attempt int, err error, delay time.Duration)

// OnSuccessFunc is called when the function succeeds.
type OnSuccessFunc func(ctx context.Context, attempts int)

// OnExhaustedFunc is called when the retry budget runs out.
type OnExhaustedFunc func(ctx context.Context, attempts int, err error)

// OnStopFunc is called when a non-retryable error ends the sequence.
type OnStopFunc func(ctx context.Context, attempts int, err error)

// OnCancelledFunc is called when the context ends the sequence.
type OnCancelledFunc func(ctx context.Context, attempts int, err error)

// Attempt records one invocation of the operation.
type Attempt struct {
	// Number is the 1-based attempt index.
	Number int
	// Err is the error the attempt returned, nil on success.
	Err error
	// Duration is the time spent inside the operation.
	Duration time.Duration
	// Delay is the wait scheduled after this attempt, zero if none. It is
	// the scheduled value even when cancellation cut the wait short.
	Delay time.Duration
}

// Succeeded reports whether the attempt returned no error.
func (a Attempt) Succeeded() bool {
	return a.Err == nil
}

// Result carries the operation's value together with what it took to get
// it. It is populated on failure as well, minus the value.
type Result[T any] struct {
	Value    T
	Attempts []Attempt
	Elapsed  time.Duration
}

// Delays returns the scheduled waits that preceded attempts 2..n. A wait
// interrupted by cancellation led to no attempt and is not included; it
// remains visible as the last attempt's Delay.
func (r Result[T]) Delays() []time.Duration {
	if len(r.Attempts) < 2 {
		return nil
	}
	delays := make([]time.Duration, 0, len(r.Attempts)-1)
	for _, a := range r.Attempts[:len(r.Attempts)-1] {
		delays = append(delays, a.Delay)
	}
	return delays
}

type attemptKey struct{}

// AttemptFromContext returns the 1-based number of the attempt whose
// context this is, or 0 outside a retry sequence.
func AttemptFromContext(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey{}).(int)
	return n
}

// Policy defines retry behavior. Safe for concurrent use.
type Policy struct {
	cfg config
}

// Default values.
const (
	DefaultMaxAttempts = 3
)

func newConfig() config {
	return config{
		Config: DefaultConfig(),
		clock:  defaultClock,
	}
}

// New creates a Policy with the given options on top of DefaultConfig.
// Configuration is validated when the policy runs, so an invalid policy
// fails every call with a *ConfigError before invoking anything.
func New(opts ...Option) *Policy {
	cfg := newConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Policy{cfg: cfg}
}

// Never returns a policy that does not retry.
func Never() *Policy {
	return New(WithMaxAttempts(1))
}

// Default returns a policy with sensible defaults.
func Default() *Policy {
	return New(
		WithMaxAttempts(DefaultMaxAttempts),
		WithBaseDelay(100*time.Millisecond),
		WithMaxDelay(10*time.Second),
		WithJitterStrategy(EqualJitter(nil)),
	)
}

// Config returns the policy-level configuration.
func (p *Policy) Config() Config {
	if p == nil {
		return DefaultConfig()
	}
	return p.cfg.Config
}

// derive copies the policy configuration and applies call-level options.
func (p *Policy) derive(opts []Option) config {
	cfg := newConfig()
	if p != nil {
		cfg = p.cfg.clone()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Do executes fn with retry using the default configuration.
func Do(ctx context.Context, fn Func, opts ...Option) error {
	_, err := execute(ctx, fn.operation(), (*Policy)(nil).derive(opts))
	return err
}

// Do executes fn with retry using this policy's configuration.
func (p *Policy) Do(ctx context.Context, fn Func, opts ...Option) error {
	_, err := execute(ctx, fn.operation(), p.derive(opts))
	return err
}

// Run executes op with retry using p's configuration. A nil p runs with
// the default configuration.
func Run[T any](ctx context.Context, p *Policy, op Operation[T], opts ...Option) (Result[T], error) {
	return execute(ctx, op, p.derive(opts))
}

// Execute runs op under cfg. Options may add hooks or override any part
// of cfg.
func Execute[T any](ctx context.Context, op Operation[T], cfg Config, opts ...Option) (Result[T], error) {
	return execute(ctx, op, (*Policy)(nil).derive(append([]Option{WithConfig(cfg)}, opts...)))
}

func (fn Func) operation() Operation[struct{}] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}
}

func execute[T any](ctx context.Context, op Operation[T], cfg config) (Result[T], error) {
	var res Result[T]

	if err := cfg.Validate(); err != nil {
		return res, err
	}
	if op == nil {
		return res, &ConfigError{Field: "Operation", Value: nil, Reason: "must not be nil"}
	}

	clock := cfg.clock
	if clock == nil {
		clock = defaultClock
	}
	backoff := cfg.Backoff()
	if cfg.backoff != nil {
		backoff = cfg.decorate(cfg.backoff)
	}

	start := clock.Now()
	var deadline time.Time
	if cfg.MaxDuration > 0 {
		deadline = start.Add(cfg.MaxDuration)
	}

	var lastErr error
	var errs []error

	record := func(a Attempt) {
		res.Attempts = append(res.Attempts, a)
		res.Elapsed = clock.Now().Sub(start)
		for _, fn := range cfg.onAttempt {
			fn(ctx, a)
		}
	}
	cause := func() error {
		if cfg.allErrors {
			return joinErrors(errs)
		}
		return lastErr
	}

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			res.Elapsed = clock.Now().Sub(start)
			return res, cfg.cancelled(ctx, nil, attempt-1, res.Elapsed, lastErr)
		}

		began := clock.Now()
		value, err := op(context.WithValue(ctx, attemptKey{}, attempt))
		a := Attempt{Number: attempt, Err: err, Duration: clock.Now().Sub(began)}

		if err == nil {
			res.Value = value
			record(a)
			for _, fn := range cfg.onSuccess {
				fn(ctx, attempt)
			}
			return res, nil
		}

		// Check for terminal error
		var stopped *terminalError
		if errors.As(err, &stopped) {
			record(a)
			return res, cfg.stopped(ctx, attempt, stopped.Unwrap())
		}

		lastErr = err
		if cfg.allErrors {
			errs = append(errs, err)
		}

		// A rejected error stops the sequence even on the last attempt
		if cfg.condition != nil && !cfg.condition(err) {
			record(a)
			return res, cfg.stopped(ctx, attempt, err)
		}

		if attempt >= cfg.MaxAttempts {
			record(a)
			return res, cfg.exhausted(ctx, attempt, res.Elapsed, ReasonMaxAttempts, cause())
		}

		delay := max(backoff.Delay(attempt), 0)

		// Fit the delay into the time budget
		if cfg.MaxDuration > 0 {
			remaining := deadline.Sub(clock.Now())
			if remaining <= 0 {
				record(a)
				return res, cfg.exhausted(ctx, attempt, res.Elapsed, ReasonMaxDuration, cause())
			}
			delay = min(delay, remaining)
		}

		a.Delay = delay
		record(a)
		for _, fn := range cfg.onRetry {
			fn(ctx, attempt, err, delay)
		}

		if serr := clock.Sleep(ctx, delay); serr != nil {
			res.Elapsed = clock.Now().Sub(start)
			return res, cfg.cancelled(ctx, serr, attempt, res.Elapsed, lastErr)
		}

		if cfg.throttle != nil {
			if terr := cfg.throttle.Wait(ctx); terr != nil {
				res.Elapsed = clock.Now().Sub(start)
				if ctx.Err() != nil {
					return res, cfg.cancelled(ctx, terr, attempt, res.Elapsed, lastErr)
				}
				return res, cfg.exhausted(ctx, attempt, res.Elapsed, ReasonThrottled, errors.Join(cause(), terr))
			}
		}
	}
}

func (c *config) exhausted(ctx context.Context, attempts int, elapsed time.Duration, reason Reason, cause error) error {
	err := &RetriesExhaustedError{
		Cause:    cause,
		Attempts: attempts,
		Elapsed:  elapsed,
		Reason:   reason,
	}
	for _, fn := range c.onExhausted {
		fn(ctx, attempts, err)
	}
	return err
}

func (c *config) stopped(ctx context.Context, attempts int, err error) error {
	for _, fn := range c.onStop {
		fn(ctx, attempts, err)
	}
	return err
}

// cancelled builds the cancellation error. fallback is used as the cause
// when the context itself reports none, e.g. a Clock that gave up on its own.
func (c *config) cancelled(ctx context.Context, fallback error, attempts int, elapsed time.Duration, lastErr error) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = fallback
	}
	err := &CancelledError{
		Cause:    cause,
		LastErr:  lastErr,
		Attempts: attempts,
		Elapsed:  elapsed,
	}
	for _, fn := range c.onCancelled {
		fn(ctx, attempts, err)
	}
	return err
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
