package retry

import (
	"math"
	"time"
)

// DefaultMultiplier is the growth factor used when Config.Multiplier is zero.
const DefaultMultiplier = 2.0

// Config is the policy-level retry configuration. It is a plain value:
// every execution works on its own copy.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// Multiplier grows the delay for each subsequent retry. Zero means
	// DefaultMultiplier.
	Multiplier float64

	// MaxDelay caps a single computed delay. Zero means no cap.
	MaxDelay time.Duration

	// Jitter randomizes each capped delay. The result is capped again, so
	// MaxDelay holds for jittered delays too. Nil disables it.
	Jitter Jitter

	// MaxDuration bounds the whole sequence. Zero means unbounded.
	MaxDuration time.Duration
}

// DefaultConfig returns three attempts starting at one second and doubling.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   time.Second,
		Multiplier:  DefaultMultiplier,
	}
}

// Validate returns a *ConfigError describing the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.MaxAttempts < 1:
		return &ConfigError{Field: "MaxAttempts", Value: c.MaxAttempts, Reason: "must be at least 1"}
	case c.BaseDelay < 0:
		return &ConfigError{Field: "BaseDelay", Value: c.BaseDelay, Reason: "must not be negative"}
	case math.IsNaN(c.Multiplier) || math.IsInf(c.Multiplier, 0):
		return &ConfigError{Field: "Multiplier", Value: c.Multiplier, Reason: "must be finite"}
	case c.Multiplier != 0 && c.Multiplier < 1:
		return &ConfigError{Field: "Multiplier", Value: c.Multiplier, Reason: "must be at least 1"}
	case c.MaxDelay < 0:
		return &ConfigError{Field: "MaxDelay", Value: c.MaxDelay, Reason: "must not be negative"}
	case c.MaxDuration < 0:
		return &ConfigError{Field: "MaxDuration", Value: c.MaxDuration, Reason: "must not be negative"}
	}
	return nil
}

// Backoff returns the delay strategy described by the config:
// BaseDelay * Multiplier^(attempt-1), capped at MaxDelay, jittered, then
// capped again.
func (c Config) Backoff() Backoff {
	return c.decorate(ExponentialFactor(c.BaseDelay, c.multiplier()))
}

func (c Config) decorate(b Backoff) Backoff {
	if c.MaxDelay > 0 {
		b = WithCap(c.MaxDelay, b)
	}
	if c.Jitter != nil {
		b = WithJitter(c.Jitter, b)
		if c.MaxDelay > 0 {
			b = WithCap(c.MaxDelay, b)
		}
	}
	return b
}

func (c Config) multiplier() float64 {
	if c.Multiplier == 0 {
		return DefaultMultiplier
	}
	return c.Multiplier
}
