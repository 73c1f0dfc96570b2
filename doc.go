// Package retry executes fallible operations with bounded, exponentially
// backed-off retries.
//
// retry provides:
//
//   - Validated Config: attempts, base delay, multiplier, delay cap, jitter, time budget
//   - Typed results: Result carries the value, every Attempt and the elapsed time
//   - Composable Backoff: Chain strategies like Exponential, WithCap, and WithJitter
//   - Injectable Clock and Rand: control time and randomness in tests
//   - Context cancellation: checked before every attempt and during every delay
//   - Lifecycle Hooks: OnAttempt, OnRetry, OnSuccess, OnExhausted, OnStop, OnCancelled
//   - Zero Dependencies in the core; logging, metrics and tracing live in sub-packages
//
// # Quick Start
//
// Executing an operation with an explicit configuration:
//
//	res, err := retry.Execute(ctx, func(ctx context.Context) (*Page, error) {
//	    return browser.Open(ctx, url)
//	}, retry.Config{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond})
//
// Creating a reusable policy for dependency injection:
//
//	// At wire-up time (e.g., in main or a DI container)
//	policy := retry.New(
//	    retry.WithMaxAttempts(5),
//	    retry.WithBaseDelay(100*time.Millisecond),
//	    retry.WithMaxDelay(5*time.Second),
//	)
//
//	// At call site
//	err := policy.Do(ctx, func(ctx context.Context) error {
//	    return client.Call(ctx)
//	},
//	    retry.If(isTransient),
//	    retry.OnRetry(func(ctx context.Context, attempt int, err error, delay time.Duration) {
//	        log.Warn("retrying", "attempt", attempt, "error", err, "delay", delay)
//	    }),
//	)
//
// Run is the value-returning counterpart of Policy.Do:
//
//	res, err := retry.Run(ctx, policy, fetchUser)
//	fmt.Println(res.Value, len(res.Attempts))
//
// # Delays
//
// The delay after failed attempt n is
//
//	min(BaseDelay * Multiplier^(n-1), MaxDelay)
//
// scaled by the jitter strategy, if any, and clamped to what is left of
// MaxDuration. Multiplier defaults to 2. WithBackoff swaps the formula for
// any Backoff; MaxDelay and jitter still apply.
//
// # Errors
//
// Every failure mode has its own type:
//
//   - *ConfigError: the configuration is invalid; nothing was invoked.
//   - *RetriesExhaustedError: MaxAttempts, MaxDuration or a Throttle ended the
//     sequence. It unwraps to the last operation error, so errors.Is and
//     errors.As see through it.
//   - *CancelledError: the context ended the sequence. It unwraps to the
//     context's cause, never to the operation error.
//
// Errors marked with Stop, and errors rejected by an If condition, are
// returned as they are.
//
//	if errors.Is(err, retry.ErrExhausted) { ... }
//	if errors.Is(err, retry.ErrCancelled) { ... }
//
// # Backoff Strategies
//
//	retry.Constant(100*time.Millisecond)               // Always 100ms
//	retry.Linear(100*time.Millisecond)                 // 100ms, 200ms, 300ms, ...
//	retry.Exponential(100*time.Millisecond)            // 100ms, 200ms, 400ms, 800ms, ...
//	retry.ExponentialFactor(100*time.Millisecond, 1.5) // 100ms, 150ms, 225ms, ...
//	retry.Schedule(time.Second, 5*time.Second)         // 1s, 5s, 5s, ...
//
// Wrappers:
//
//   - WithCap(max, b): Caps delay at max duration
//   - WithMin(min, b): Ensures delay is at least min duration
//   - WithJitter(j, b): Randomizes each delay with a Jitter
//
// # Jitter
//
// EqualJitter scales a delay by a uniform factor in [0.5, 1.0), FullJitter
// picks anything in [0, d) and Deviation spreads it by ±factor. Each takes
// a Rand; pass NewRand(seed) for reproducible sequences or nil for the
// runtime's generator.
//
// # Testing
//
// Inject a fake clock to control time in tests:
//
//	type fakeClock struct {
//	    now    time.Time
//	    sleeps []time.Duration
//	}
//
//	func (c *fakeClock) Now() time.Time { return c.now }
//	func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
//	    c.sleeps = append(c.sleeps, d)
//	    c.now = c.now.Add(d)
//	    return ctx.Err()
//	}
package retry
