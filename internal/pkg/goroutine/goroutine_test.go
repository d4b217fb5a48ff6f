package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RunsAllAndJoinsErrors(t *testing.T) {
	m := NewManager(2)
	errA := errors.New("a")
	errB := errors.New("b")

	var ran atomic.Int32
	for _, e := range []error{errA, nil, errB, nil} {
		require.NoError(t, m.Go(context.Background(), func(context.Context) error {
			ran.Add(1)
			return e
		}))
	}

	err := m.Wait()
	assert.Equal(t, int32(4), ran.Load())
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestManager_BoundsConcurrency(t *testing.T) {
	m := NewManager(1)

	var active, peak atomic.Int32
	for range 3 {
		require.NoError(t, m.Go(context.Background(), func(context.Context) error {
			n := active.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return nil
		}))
	}

	require.NoError(t, m.Wait())
	assert.Equal(t, int32(1), peak.Load())
}

func TestManager_RecoversPanic(t *testing.T) {
	m := NewManager(1)
	require.NoError(t, m.Go(context.Background(), func(context.Context) error {
		panic("boom")
	}))

	err := m.Wait()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
}

func TestManager_ClosedAfterWait(t *testing.T) {
	m := NewManager(1)
	require.NoError(t, m.Wait())

	err := m.Go(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_CanceledWhileWaitingForSlot(t *testing.T) {
	m := NewManager(1)
	release := make(chan struct{})
	require.NoError(t, m.Go(context.Background(), func(context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Go(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.NoError(t, m.Wait())
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	assert.ErrorIs(t, m.Go(context.Background(), nil), ErrClosed)
	assert.NoError(t, m.Wait())
}
