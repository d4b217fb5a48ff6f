package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func TestStepAt(t *testing.T) {
	period := 30 * time.Second
	now := time.UnixMilli(1_000_000_000_000)

	assert.Equal(t, int64(33333333), StepAt(now, period, 0))
	assert.Equal(t, int64(33333332), StepAt(now, period, -15*time.Second))
	assert.Equal(t, int64(33333334), StepAt(now, period, 25*time.Second))
}

func TestStepAt_NegativeInstant(t *testing.T) {
	assert.Equal(t, int64(-1), StepAt(time.UnixMilli(0), 30*time.Second, -time.Millisecond))
	assert.Equal(t, int64(0), StepAt(time.UnixMilli(0), 30*time.Second, 0))
}

func TestStepAt_Monotonic(t *testing.T) {
	for _, period := range []time.Duration{time.Second, 30 * time.Second, 60 * time.Second} {
		for _, offset := range []time.Duration{-47 * time.Second, 0, 1500 * time.Millisecond} {
			now := time.UnixMilli(1_700_000_000_000)
			prev := StepAt(now, period, offset)
			for range 2000 {
				now = now.Add(137 * time.Millisecond)
				cur := StepAt(now, period, offset)
				assert.GreaterOrEqual(t, cur, prev)
				assert.LessOrEqual(t, cur-prev, int64(1))
				prev = cur
			}
		}
	}
}

func TestRemainingAt(t *testing.T) {
	period := 30 * time.Second
	now := time.UnixMilli(1_000_000_000_000)

	assert.Equal(t, 20*time.Second+StepGuard, RemainingAt(now, period, 0))
	assert.Equal(t, 5*time.Second+StepGuard, RemainingAt(now, period, -15*time.Second))

	boundary := time.UnixMilli(33333334 * 30_000)
	assert.Equal(t, time.Millisecond+StepGuard, RemainingAt(boundary.Add(-time.Millisecond), period, 0))
	assert.Equal(t, period+StepGuard, RemainingAt(boundary, period, 0))
}

func TestRemainingAt_Range(t *testing.T) {
	period := 30 * time.Second
	now := time.UnixMilli(1_700_000_000_000)
	prevStep := StepAt(now, period, 0)
	prevRemaining := RemainingAt(now, period, 0)

	for range 1000 {
		now = now.Add(97 * time.Millisecond)
		step := StepAt(now, period, 0)
		remaining := RemainingAt(now, period, 0)

		assert.Greater(t, remaining, StepGuard)
		assert.LessOrEqual(t, remaining, period+StepGuard)

		if step == prevStep {
			assert.Less(t, remaining, prevRemaining)
		} else {
			// Just rolled over: close to a full period again.
			assert.Greater(t, remaining, period-time.Second)
		}

		prevStep, prevRemaining = step, remaining
	}
}

func TestStepClock(t *testing.T) {
	c := &fixedClock{now: time.UnixMilli(1_000_000_010_000)}
	sc := NewStepClock(c, 30*time.Second, 0)

	step := sc.CurrentStep()
	assert.Equal(t, time.UnixMilli(step*30_000), sc.EpochForStep(0))
	assert.Equal(t, time.UnixMilli((step-1)*30_000), sc.EpochForStep(-1))
	assert.Equal(t, time.UnixMilli((step+1)*30_000), sc.EpochForStep(1))

	// Sleeping Remaining lands in the next step.
	c.now = c.now.Add(sc.Remaining())
	assert.Equal(t, step+1, sc.CurrentStep())
}

func TestStepClock_OffsetShiftsCodes(t *testing.T) {
	o := NewTOTP(30, 6)
	c := &fixedClock{now: time.Unix(1234567890, 0)}

	ahead := NewStepClock(c, 30*time.Second, 30*time.Second)
	plain := NewStepClock(c, 30*time.Second, 0)

	aheadCode, err := o.GenerateCode(rfcSecret, ahead.EpochForStep(0))
	assert.NoError(t, err)
	nextCode, err := o.GenerateCode(rfcSecret, plain.EpochForStep(1))
	assert.NoError(t, err)
	assert.Equal(t, nextCode, aheadCode)
}

func TestNewStepClock_DefaultPeriod(t *testing.T) {
	sc := NewStepClock(&fixedClock{now: time.Unix(0, 0)}, 0, 0)
	assert.Equal(t, time.Duration(DefaultPeriod)*time.Second+StepGuard, sc.Remaining())
}
