package retry

import (
	"context"
	"time"
)

// Clock is the time source a policy reads and sleeps on. Tests substitute
// a fake one to run without real waits.
type Clock interface {
	Now() time.Time

	// Sleep waits for d and returns nil, or returns the context's error as
	// soon as ctx is done. A non-positive d only reports that error.
	Sleep(ctx context.Context, d time.Duration) error
}

var defaultClock Clock = systemClock{}

// SystemClock returns the wall clock policies use unless WithClock says
// otherwise. It is useful for wrapping.
func SystemClock() Clock {
	return defaultClock
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
