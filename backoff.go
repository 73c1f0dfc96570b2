package retry

import (
	"math"
	"time"
)

// maxDelay is the saturation point for every computed delay.
const maxDelay = time.Duration(math.MaxInt64)

// Backoff maps the number of the attempt that just failed (1-based) to the
// wait before the next one.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// BackoffFunc adapts a plain function to Backoff.
type BackoffFunc func(attempt int) time.Duration

// Delay implements Backoff.
func (f BackoffFunc) Delay(attempt int) time.Duration {
	return f(attempt)
}

// Constant waits d after every attempt.
func Constant(d time.Duration) Backoff {
	return BackoffFunc(func(int) time.Duration {
		return d
	})
}

// Linear waits base * attempt.
func Linear(base time.Duration) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		return scale(base, time.Duration(max(attempt, 1)))
	})
}

// Exponential waits base * 2^(attempt-1).
func Exponential(base time.Duration) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		switch {
		case attempt <= 1:
			return base
		case attempt > 63:
			return maxDelay
		}
		return scale(base, time.Duration(1)<<uint(attempt-1))
	})
}

// ExponentialFactor waits base * factor^(attempt-1). It is the strategy
// behind Config.Backoff.
func ExponentialFactor(base time.Duration, factor float64) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		if attempt <= 1 {
			return base
		}
		d := float64(base) * math.Pow(factor, float64(attempt-1))
		if math.IsNaN(d) || d >= math.MaxInt64 {
			return maxDelay
		}
		return time.Duration(d)
	})
}

// Schedule waits delays[attempt-1], repeating the last entry once the list
// runs out. An empty schedule never waits.
func Schedule(delays ...time.Duration) Backoff {
	delays = append([]time.Duration(nil), delays...)
	return BackoffFunc(func(attempt int) time.Duration {
		if len(delays) == 0 {
			return 0
		}
		return delays[min(max(attempt, 1), len(delays))-1]
	})
}

// scale multiplies d by n, saturating instead of wrapping around.
func scale(d, n time.Duration) time.Duration {
	if d > 0 && n > maxDelay/d {
		return maxDelay
	}
	return d * n
}

// WithCap limits every delay of b to at most ceiling.
func WithCap(ceiling time.Duration, b Backoff) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		return min(b.Delay(attempt), ceiling)
	})
}

// WithMin raises every delay of b to at least floor.
func WithMin(floor time.Duration, b Backoff) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		return max(b.Delay(attempt), floor)
	})
}

// WithJitter passes every delay of b through j.
func WithJitter(j Jitter, b Backoff) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		return j.Apply(b.Delay(attempt))
	})
}
