package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/clock"
	"github.com/shandysiswandi/authpilot/internal/pkg/instrument"
	"github.com/shandysiswandi/authpilot/internal/pkg/otp"
	"github.com/shandysiswandi/authpilot/internal/pkg/runlock"
	"github.com/shandysiswandi/authpilot/internal/pkg/uid"
	"github.com/shandysiswandi/authpilot/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// PageProbe answers yes/no questions about the live page. Implementations
// look at the root document and every frame.
type PageProbe interface {
	HasLoginForm(ctx context.Context) (bool, error)
	HasOTPField(ctx context.Context) (bool, error)
	HasErrorIndicator(ctx context.Context) (bool, error)
	HasInvalidCodeMessage(ctx context.Context) (bool, error)
}

// FormDriver acts on the live page. Errors are goerror values with code
// FieldNotFound or ActionTimeout.
type FormDriver interface {
	FillUsername(ctx context.Context, value string) error
	FillPassword(ctx context.Context, value string) error
	FillOTP(ctx context.Context, code string) error
	Submit(ctx context.Context) error
	WaitSettled(ctx context.Context, timeout time.Duration) error
}

// SessionStore saves the authenticated session and returns an opaque handle.
type SessionStore interface {
	Persist(ctx context.Context) (string, error)
}

// SessionStoreFunc adapts a function to SessionStore.
type SessionStoreFunc func(ctx context.Context) (string, error)

// Persist calls f.
func (f SessionStoreFunc) Persist(ctx context.Context) (string, error) { return f(ctx) }

// Page is a browser tab driven through one target run.
type Page interface {
	PageProbe
	FormDriver

	Navigate(ctx context.Context, url string) error
	RestoreSession(ctx context.Context, st *entity.StoredSession) error
	CaptureSession(ctx context.Context) (*entity.StoredSession, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

type browser interface {
	NewPage(ctx context.Context) (Page, error)
}

type repoSession interface {
	SaveSession(ctx context.Context, target string, st *entity.StoredSession) (string, error)
	LoadSession(ctx context.Context, target, handle string) (*entity.StoredSession, error)
	SaveScreenshot(ctx context.Context, runID, target, name string, png []byte) (string, error)
}

type repoHistory interface {
	SaveRun(ctx context.Context, rec entity.RunRecord) error
	ListRuns(ctx context.Context, target string, limit int) ([]entity.RunRecord, error)
}

type repoEvents interface {
	PublishRunCompleted(ctx context.Context, rec entity.RunRecord) error
}

type Usecase struct {
	repoSession repoSession
	repoHistory repoHistory
	repoEvents  repoEvents
	browser     browser
	locker      runlock.Locker
	validator   validator.Validator
	uuid        uid.StringID
	totp        otp.OTP
	steps       *otp.StepClock
	clock       clock.Clock
	ins         instrument.Instrumentation
	concurrency int
	policy      entity.Policy
	forceLogin  bool
	lockTTL     time.Duration

	otpAttempts metric.Int64Counter
	otpResleeps metric.Int64Counter
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
}

type Dependency struct {
	RepoSession repoSession
	RepoHistory repoHistory
	RepoEvents  repoEvents
	Browser     browser
	Locker      runlock.Locker
	Validator   validator.Validator
	UUID        uid.StringID
	Totp        otp.OTP
	TOTPConfig  otp.Config
	Clock       clock.Clock
	Instrument  instrument.Instrumentation
	Concurrency int
	Policy      entity.Policy
	ForceLogin  bool
	LockTTL     time.Duration
}

func New(dep Dependency) *Usecase {
	ins := dep.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}
	locker := dep.Locker
	if locker == nil {
		locker = runlock.Noop{}
	}

	s := &Usecase{
		repoSession: dep.RepoSession,
		repoHistory: dep.RepoHistory,
		repoEvents:  dep.RepoEvents,
		browser:     dep.Browser,
		locker:      locker,
		validator:   dep.Validator,
		uuid:        dep.UUID,
		totp:        dep.Totp,
		steps:       otp.NewStepClockFromConfig(dep.Clock, dep.TOTPConfig),
		clock:       dep.Clock,
		ins:         ins,
		concurrency: dep.Concurrency,
		policy:      dep.Policy,
		forceLogin:  dep.ForceLogin,
		lockTTL:     dep.LockTTL,
	}

	meter := ins.Meter("authflow.usecase")
	s.otpAttempts = newCounter(meter, "authpilot.otp.attempts", "Second-factor attempts submitted")
	s.otpResleeps = newCounter(meter, "authpilot.otp.resleeps", "Sleeps to the next TOTP step after a rejected code")
	s.runs = newCounter(meter, "authpilot.runs", "Target runs by outcome")

	hist, err := meter.Float64Histogram("authpilot.run.duration",
		metric.WithDescription("Wall time of a target run"), metric.WithUnit("s"))
	if err != nil {
		slog.Warn("failed to create histogram, using noop", "error", err)
		hist, _ = metricnoop.Meter{}.Float64Histogram("authpilot.run.duration")
	}
	s.runDuration = hist

	return s
}

func newCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Warn("failed to create counter, using noop", "name", name, "error", err)
		c, _ = metricnoop.Meter{}.Int64Counter(name)
	}
	return c
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("authflow.usecase").Start(ctx, name)
}

// sleep waits d on the injected clock. Zero or negative durations return at once.
func (s *Usecase) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return s.clock.Sleep(ctx, d)
}
