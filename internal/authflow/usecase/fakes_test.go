package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"github.com/shandysiswandi/authpilot/internal/pkg/otp"
	"github.com/shandysiswandi/authpilot/internal/pkg/validator"
	"github.com/stretchr/testify/require"
)

const testSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

// fakeClock starts 5s into a 30s step and only moves when slept on.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_015, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

type view struct {
	login       bool
	otp         bool
	errorPage   bool
	invalidCode bool
}

var (
	viewLogin    = view{login: true}
	viewOTP      = view{otp: true}
	viewRejected = view{otp: true, invalidCode: true}
	viewHome     = view{}
	viewError    = view{errorPage: true}
)

// fakePage is a scripted page. Submitting credentials or a code moves it
// to the view returned by the matching callback.
type fakePage struct {
	mu sync.Mutex

	current      view
	onCredential func(n int) view
	onCode       func(n int, code string) view

	probeErr    error
	usernameErr error
	otpErr      error
	settleErr   error
	persistErr  error

	probes       []string
	codes        []string
	credentials  int
	settles      []time.Duration
	pendingCode  string
	pendingCreds bool

	navigated []string
	restored  *entity.StoredSession
	closed    bool
}

func newFakePage(start view) *fakePage {
	return &fakePage{
		current:      start,
		onCredential: func(int) view { return viewOTP },
		onCode:       func(int, string) view { return viewHome },
	}
}

func (p *fakePage) probe(name string, v bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes = append(p.probes, name)
	if p.probeErr != nil {
		return false, p.probeErr
	}
	return v, nil
}

func (p *fakePage) HasLoginForm(context.Context) (bool, error) {
	return p.probe("login", p.current.login)
}

func (p *fakePage) HasOTPField(context.Context) (bool, error) {
	return p.probe("otp", p.current.otp)
}

func (p *fakePage) HasErrorIndicator(context.Context) (bool, error) {
	return p.probe("error", p.current.errorPage)
}

func (p *fakePage) HasInvalidCodeMessage(context.Context) (bool, error) {
	return p.probe("invalid", p.current.invalidCode)
}

func (p *fakePage) FillUsername(context.Context, string) error {
	if p.usernameErr != nil {
		return p.usernameErr
	}
	p.pendingCreds = true
	return nil
}

func (p *fakePage) FillPassword(context.Context, string) error {
	return nil
}

func (p *fakePage) FillOTP(_ context.Context, code string) error {
	if p.otpErr != nil {
		return p.otpErr
	}
	p.pendingCode = code
	return nil
}

func (p *fakePage) Submit(context.Context) error {
	switch {
	case p.pendingCode != "":
		p.codes = append(p.codes, p.pendingCode)
		p.current = p.onCode(len(p.codes), p.pendingCode)
		p.pendingCode = ""
	case p.pendingCreds:
		p.credentials++
		p.current = p.onCredential(p.credentials)
		p.pendingCreds = false
	}
	return nil
}

func (p *fakePage) WaitSettled(_ context.Context, timeout time.Duration) error {
	p.settles = append(p.settles, timeout)
	return p.settleErr
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) RestoreSession(_ context.Context, st *entity.StoredSession) error {
	p.restored = st
	return nil
}

func (p *fakePage) CaptureSession(context.Context) (*entity.StoredSession, error) {
	if p.persistErr != nil {
		return nil, p.persistErr
	}
	return &entity.StoredSession{
		URL:     "https://eproc.example.test/home",
		Cookies: []entity.Cookie{{Name: "JSESSIONID", Value: "secret", Domain: "eproc.example.test"}},
	}, nil
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

// persistCounter is a SessionStore that counts calls.
type persistCounter struct {
	calls int
	err   error
}

func (s *persistCounter) Persist(context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "primary/auth-state.json", nil
}

type fakeBrowser struct {
	page *fakePage
	err  error
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.page, nil
}

type fakeSessions struct {
	mu          sync.Mutex
	saved       map[string]*entity.StoredSession
	screenshots []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: map[string]*entity.StoredSession{}}
}

func (f *fakeSessions) SaveSession(_ context.Context, target string, st *entity.StoredSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[target] = st
	return target + "/auth-state.json", nil
}

func (f *fakeSessions) LoadSession(_ context.Context, target, _ string) (*entity.StoredSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.saved[target]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return st, nil
}

func (f *fakeSessions) SaveScreenshot(_ context.Context, runID, target, name string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := target + "/" + runID + "/" + name + ".png"
	f.screenshots = append(f.screenshots, loc)
	return loc, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	history   []entity.RunRecord
	published []entity.RunRecord
}

func (f *fakeRecorder) SaveRun(_ context.Context, rec entity.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, rec)
	return nil
}

func (f *fakeRecorder) ListRuns(_ context.Context, target string, limit int) ([]entity.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.RunRecord
	for i := len(f.history) - 1; i >= 0 && len(out) < limit; i-- {
		if target == "" || f.history[i].Target == target {
			out = append(out, f.history[i])
		}
	}
	return out, nil
}

func (f *fakeRecorder) PublishRunCompleted(_ context.Context, rec entity.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, rec)
	return nil
}

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "run-" + string(rune('0'+s.n))
}

type testEnv struct {
	uc       *Usecase
	clock    *fakeClock
	sessions *fakeSessions
	recorder *fakeRecorder
}

func newTestEnv(t *testing.T, policy entity.Policy, dep Dependency) *testEnv {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	env := &testEnv{clock: newFakeClock(), sessions: newFakeSessions(), recorder: &fakeRecorder{}}

	dep.Validator = v
	dep.Totp = otp.NewTOTP(30, 6)
	dep.TOTPConfig = otp.Config{Period: 30, Digits: 6, Secret: testSecret}
	dep.Clock = env.clock
	dep.Policy = policy
	dep.UUID = &seqID{}
	dep.RepoSession = env.sessions
	dep.RepoHistory = env.recorder
	dep.RepoEvents = env.recorder

	env.uc = New(dep)
	return env
}

func testCredentials() entity.Credentials {
	return entity.Credentials{Username: "alice", Password: "hunter2"}
}

func authInput(page *fakePage, store SessionStore) AuthenticateInput {
	return AuthenticateInput{
		Probe:       page,
		Driver:      page,
		Store:       store,
		Credentials: testCredentials(),
		Secret:      testSecret,
	}
}

func codeAt(t *testing.T, at time.Time) string {
	t.Helper()
	code, err := otp.NewTOTP(30, 6).GenerateCode(testSecret, at)
	require.NoError(t, err)
	return code
}
