package browser

import (
	"context"
	"sync"

	"github.com/shandysiswandi/authpilot/internal/authflow/usecase"
	"go.uber.org/atomic"
)

type pageOpener interface {
	NewPage(ctx context.Context) (usecase.Page, error)
	Close() error
}

type running struct {
	opener pageOpener
}

// Lazy starts chromedriver on the first NewPage, so commands that never
// open a page never need Chrome installed. Once started, NewPage does not
// take the lock.
type Lazy struct {
	opts    Options
	start   func(Options) (pageOpener, error)
	mu      sync.Mutex
	current *atomic.Pointer[running]
}

func NewLazy(opts Options) *Lazy {
	return &Lazy{
		opts:    opts,
		start:   func(o Options) (pageOpener, error) { return New(o) },
		current: atomic.NewPointer[running](nil),
	}
}

func (l *Lazy) NewPage(ctx context.Context) (usecase.Page, error) {
	if r := l.current.Load(); r != nil {
		return r.opener.NewPage(ctx)
	}

	r, err := l.startOnce()
	if err != nil {
		return nil, err
	}
	return r.opener.NewPage(ctx)
}

func (l *Lazy) startOnce() (*running, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r := l.current.Load(); r != nil {
		return r, nil
	}
	opener, err := l.start(l.opts)
	if err != nil {
		return nil, err
	}
	r := &running{opener: opener}
	l.current.Store(r)
	return r, nil
}

// Started reports whether chromedriver was launched.
func (l *Lazy) Started() bool {
	return l.current.Load() != nil
}

// Close stops chromedriver when it was started.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.current.Swap(nil)
	if r == nil {
		return nil
	}
	return r.opener.Close()
}
