package retry

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	ErrInvalidConfig = errors.New("retry: invalid config")
	ErrExhausted     = errors.New("retry: retries exhausted")
	ErrCancelled     = errors.New("retry: cancelled")
)

// ConfigError reports an invalid Config. It is returned before the
// operation is invoked and is never retried.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("retry: invalid config: %s %s (got %v)", e.Field, e.Reason, e.Value)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Reason describes which budget ended a retry sequence.
type Reason string

const (
	ReasonMaxAttempts Reason = "max_attempts"
	ReasonMaxDuration Reason = "max_duration"
	ReasonThrottled   Reason = "throttled"
)

// RetriesExhaustedError is returned when the retry budget runs out before
// the operation succeeds. Cause is the last operation error, or every
// attempt's error joined together when WithAllErrors is set.
type RetriesExhaustedError struct {
	Cause    error
	Attempts int
	Elapsed  time.Duration
	Reason   Reason
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts (%s): %v", e.Attempts, e.Reason, e.Cause)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrExhausted.
func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// CancelledError is returned when the context ends before the sequence
// finishes. It unwraps to the context's cause, not to the operation error;
// the last operation error, if any, is kept in LastErr.
type CancelledError struct {
	Cause    error
	LastErr  error
	Attempts int
	Elapsed  time.Duration
}

func (e *CancelledError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("retry: cancelled after %d attempts: %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("retry: cancelled after %d attempts: %v (last error: %v)", e.Attempts, e.Cause, e.LastErr)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrCancelled.
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

// Stop marks err as terminal: the sequence ends at once and err itself,
// without the marker, is returned. Stop(nil) is nil.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{cause: err}
}

// IsStopped reports whether err, or anything it wraps, went through Stop.
func IsStopped(err error) bool {
	var t *terminalError
	return errors.As(err, &t)
}

type terminalError struct {
	cause error
}

func (e *terminalError) Error() string { return e.cause.Error() }
func (e *terminalError) Unwrap() error { return e.cause }
