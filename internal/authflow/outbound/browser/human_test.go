package browser

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

type fakeElement struct {
	clicked bool
	cleared bool
	filled  string
	keys    []string
	keyErr  error
}

func (e *fakeElement) Click() error { e.clicked = true; return nil }
func (e *fakeElement) Clear() error { e.cleared = true; return nil }

func (e *fakeElement) Fill(text string) error {
	e.filled = text
	return nil
}

func (e *fakeElement) SendKeys(key string) error {
	if e.keyErr != nil {
		return e.keyErr
	}
	e.keys = append(e.keys, key)
	return nil
}

func TestHumanizer_TypeInto(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		// Arrange
		sleeper := &recordingSleeper{}
		h := humanizer{sleeper: sleeper}
		el := &fakeElement{}

		// Act
		err := h.typeInto(context.Background(), el, "123456")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "123456", el.filled)
		assert.Empty(t, el.keys)
		assert.Empty(t, sleeper.sleeps)
	})

	t.Run("Enabled", func(t *testing.T) {
		// Arrange
		sleeper := &recordingSleeper{}
		h := humanizer{enabled: true, sleeper: sleeper}
		el := &fakeElement{}

		// Act
		err := h.typeInto(context.Background(), el, "añb")

		// Assert
		require.NoError(t, err)
		assert.True(t, el.clicked)
		assert.True(t, el.cleared)
		assert.Equal(t, []string{"a", "ñ", "b"}, el.keys)
		require.Len(t, sleeper.sleeps, 5)
		assert.GreaterOrEqual(t, sleeper.sleeps[0], 100*time.Millisecond)
		assert.LessOrEqual(t, sleeper.sleeps[0], 300*time.Millisecond)
		for _, d := range sleeper.sleeps[1:4] {
			assert.GreaterOrEqual(t, d, 50*time.Millisecond)
			assert.LessOrEqual(t, d, 150*time.Millisecond)
		}
	})

	t.Run("KeyError", func(t *testing.T) {
		h := humanizer{enabled: true, sleeper: &recordingSleeper{}}
		el := &fakeElement{keyErr: errors.New("stale element")}

		err := h.typeInto(context.Background(), el, "1")

		assert.EqualError(t, err, "stale element")
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		h := humanizer{enabled: true, sleeper: &recordingSleeper{}}

		err := h.typeInto(ctx, &fakeElement{}, "1")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBetween(t *testing.T) {
	for range 100 {
		d := between(500*time.Millisecond, 1500*time.Millisecond)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
	assert.Equal(t, time.Second, between(time.Second, time.Second))
}

func TestCookieConversion(t *testing.T) {
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := entity.Cookie{Name: "JSESSIONID", Value: "v", Domain: ".example.test", Path: "/", Expires: &exp, Secure: true, HTTPOnly: true}

	hc := toHTTPCookie(in)
	out := fromHTTPCookie(hc)

	assert.Equal(t, in, out)

	session := fromHTTPCookie(&http.Cookie{Name: "s", Value: "v"})
	assert.Nil(t, session.Expires)
}
