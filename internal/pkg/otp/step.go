package otp

import (
	"time"

	"github.com/shandysiswandi/authpilot/internal/pkg/clock"
)

// StepGuard is added to the time left in a step so a caller sleeping that
// long wakes up just after the rollover, never just before it.
const StepGuard = 200 * time.Millisecond

// StepAt returns floor((now + offset) / period) in whole steps.
func StepAt(now time.Time, period, offset time.Duration) int64 {
	return floorDiv(now.UnixMilli()+offset.Milliseconds(), period.Milliseconds())
}

// RemainingAt returns the time until the next step boundary plus StepGuard.
// The result is always in (StepGuard, period+StepGuard].
func RemainingAt(now time.Time, period, offset time.Duration) time.Duration {
	p := period.Milliseconds()
	elapsed := floorMod(now.UnixMilli()+offset.Milliseconds(), p)

	return time.Duration(p-elapsed)*time.Millisecond + StepGuard
}

// EpochAt returns the start instant of step StepAt(now)+delta.
func EpochAt(now time.Time, period, offset time.Duration, delta int64) time.Time {
	step := StepAt(now, period, offset) + delta

	return time.UnixMilli(step * period.Milliseconds())
}

// StepClock answers time-step questions against a live clock.
//
// Nothing is cached: each call reads the clock again, so the answers always
// reflect wall-clock time.
type StepClock struct {
	clock  clock.Clocker
	period time.Duration
	offset time.Duration
}

// NewStepClock returns a StepClock. A non-positive period falls back to
// DefaultPeriod.
func NewStepClock(c clock.Clocker, period, offset time.Duration) *StepClock {
	if period <= 0 {
		period = time.Duration(DefaultPeriod) * time.Second
	}

	return &StepClock{clock: c, period: period, offset: offset}
}

// NewStepClockFromConfig builds a StepClock for cfg.
func NewStepClockFromConfig(c clock.Clocker, cfg Config) *StepClock {
	return NewStepClock(c, cfg.PeriodDuration(), cfg.Offset)
}

// CurrentStep returns the current step index.
func (s *StepClock) CurrentStep() int64 {
	return StepAt(s.clock.Now(), s.period, s.offset)
}

// Remaining returns the time to sleep to land just past the next boundary.
func (s *StepClock) Remaining() time.Duration {
	return RemainingAt(s.clock.Now(), s.period, s.offset)
}

// EpochForStep returns the start of step CurrentStep()+delta, suitable for
// passing to OTP.GenerateCode.
func (s *StepClock) EpochForStep(delta int64) time.Time {
	return EpochAt(s.clock.Now(), s.period, s.offset, delta)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
