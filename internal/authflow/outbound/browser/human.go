package browser

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/shandysiswandi/authpilot/internal/pkg/clock"
)

// element is the subset of *agouti.Selection used for typing.
type element interface {
	Click() error
	Clear() error
	Fill(text string) error
	SendKeys(key string) error
}

// humanizer spaces out interactions like a person would. When disabled it
// never sleeps and fills fields in one call.
type humanizer struct {
	enabled bool
	sleeper clock.Sleeper
}

func between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

func (h humanizer) pause(ctx context.Context, lo, hi time.Duration) error {
	if !h.enabled {
		return ctx.Err()
	}
	return h.sleeper.Sleep(ctx, between(lo, hi))
}

// typeInto replaces the content of el with text, one key at a time when
// enabled.
func (h humanizer) typeInto(ctx context.Context, el element, text string) error {
	if !h.enabled {
		return el.Fill(text)
	}

	if err := el.Click(); err != nil {
		return err
	}
	if err := el.Clear(); err != nil {
		return err
	}
	if err := h.pause(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
		return err
	}
	for _, r := range text {
		if err := el.SendKeys(string(r)); err != nil {
			return err
		}
		if err := h.pause(ctx, 50*time.Millisecond, 150*time.Millisecond); err != nil {
			return err
		}
	}
	return h.pause(ctx, 200*time.Millisecond, 500*time.Millisecond)
}
