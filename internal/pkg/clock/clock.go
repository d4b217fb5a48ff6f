package clock

import (
	"context"
	"time"
)

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// Sleeper suspends the caller for a duration or until ctx is done.
type Sleeper interface {
	// Sleep returns ctx.Err() when the context ends before d elapses.
	Sleep(ctx context.Context, d time.Duration) error
}

// Clock is the combination used by the authentication flow.
type Clock interface {
	Clocker
	Sleeper
}

// TimeClocker is the production clock implementation backed by time.Now.
type TimeClocker struct{}

// New returns a TimeClocker that reads the current system time.
func New() *TimeClocker {
	return &TimeClocker{}
}

// Now returns the current system time.
func (*TimeClocker) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d, returning early when ctx is canceled.
func (*TimeClocker) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
