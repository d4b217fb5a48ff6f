package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/authpilot/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is used when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 4

// ErrClosed is returned by Go once Wait has been called.
var ErrClosed = errors.New("goroutine: manager is closed")

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value  any
	Frames []string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("goroutine: panic: %v", e.Value)
}

// Manager runs functions in goroutines with a bounded concurrency.
//
// Go blocks until a slot is free, so every accepted task eventually runs.
// Errors returned by tasks, and panics converted to *PanicError, are
// collected and returned by Wait.
type Manager struct {
	mu      sync.Mutex
	errs    []error
	wg      sync.WaitGroup
	sema    chan struct{}
	stateMu sync.RWMutex
	closed  bool
}

// NewManager creates a new Manager with the provided maximum concurrency.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = min(runtime.NumCPU(), DefaultMaxGoroutine)
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go schedules f once a slot is available. It returns ctx.Err() when ctx
// ends before a slot frees up and ErrClosed after Wait.
func (g *Manager) Go(ctx context.Context, f func(ctx context.Context) error) error {
	if g == nil {
		return ErrClosed
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	if g.closed {
		slog.WarnContext(ctx, "goroutine manager is closed, skipping new goroutine")
		return ErrClosed
	}

	select {
	case g.sema <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.wg.Go(func() { g.run(ctx, f) })
	return nil
}

func (g *Manager) run(ctx context.Context, f func(ctx context.Context) error) {
	defer func() {
		<-g.sema

		if rvr := recover(); rvr != nil {
			frames := stacktrace.InternalPaths(debug.Stack())
			slog.ErrorContext(ctx, "panic occurred in goroutine", "panic", rvr, "stack", frames)
			g.record(&PanicError{Value: rvr, Frames: frames})
		}
	}()

	g.record(f(ctx))
}

func (g *Manager) record(err error) {
	if err == nil {
		return
	}
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

// Wait closes the manager, blocks until all scheduled goroutines finish and
// returns the collected errors joined.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
