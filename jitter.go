package retry

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is a source of uniformly distributed floats in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded Rand that is safe for concurrent use.
// Equal seeds yield equal sequences.
func NewRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed))}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// globalRand draws from the runtime-seeded top-level generator.
type globalRand struct{}

func (globalRand) Float64() float64 {
	return rand.Float64()
}

func orGlobal(r Rand) Rand {
	if r == nil {
		return globalRand{}
	}
	return r
}

// Jitter randomizes a computed delay.
type Jitter interface {
	Apply(d time.Duration) time.Duration
}

// JitterFunc is an adapter that allows a function to be used as a Jitter.
type JitterFunc func(d time.Duration) time.Duration

// Apply implements Jitter.
func (f JitterFunc) Apply(d time.Duration) time.Duration {
	return f(d)
}

// EqualJitter scales the delay by a uniform factor in [0.5, 1.0).
// The upper bound is open on purpose: Rand draws from [0, 1), and a
// jittered delay never exceeds d. A nil r uses the global generator.
func EqualJitter(r Rand) Jitter {
	r = orGlobal(r)
	return JitterFunc(func(d time.Duration) time.Duration {
		if d <= 0 {
			return 0
		}
		return time.Duration(float64(d) * (0.5 + r.Float64()/2))
	})
}

// FullJitter picks a uniform delay in [0, d).
// A nil r uses the global generator.
func FullJitter(r Rand) Jitter {
	r = orGlobal(r)
	return JitterFunc(func(d time.Duration) time.Duration {
		if d <= 0 {
			return 0
		}
		return time.Duration(float64(d) * r.Float64())
	})
}

// Deviation spreads the delay by up to ±factor of itself, so 0.2 means ±20%.
// Results never go below zero. A nil r uses the global generator.
func Deviation(factor float64, r Rand) Jitter {
	r = orGlobal(r)
	return JitterFunc(func(d time.Duration) time.Duration {
		if factor <= 0 {
			return d
		}
		spread := float64(d) * factor
		result := time.Duration(float64(d) + (r.Float64()*2-1)*spread)
		if result < 0 {
			return 0
		}
		return result
	})
}
