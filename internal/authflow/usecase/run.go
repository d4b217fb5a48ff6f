package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"github.com/shandysiswandi/authpilot/internal/pkg/goroutine"
	"github.com/shandysiswandi/authpilot/internal/pkg/instrument"
	"github.com/shandysiswandi/authpilot/internal/pkg/otp"
	"github.com/shandysiswandi/authpilot/internal/pkg/runlock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Run authenticates one target end to end: lock the account, open a page,
// optionally restore the previous session, authenticate, capture
// screenshots, then record and publish the outcome. The returned record is
// always filled in, also when err is non-nil.
func (s *Usecase) Run(ctx context.Context, target entity.Target) (rec entity.RunRecord, err error) {
	runID := s.uuid.Generate()
	ctx = instrument.WithTarget(instrument.WithRunID(ctx, runID), target.Name)
	ctx, span := s.startSpan(ctx, "Run")
	defer span.End()

	rec = entity.RunRecord{
		RunID:     runID,
		Target:    target.Name,
		BaseURL:   target.BaseURL,
		Outcome:   entity.OutcomeFailed,
		Phase:     entity.PhaseStart.String(),
		StartedAt: s.clock.Now(),
	}
	defer func() {
		rec.FinishedAt = s.clock.Now()
		if err != nil {
			rec.ErrorCode = goerror.CodeOf(err).String()
			rec.ErrorMessage = err.Error()
		}
		s.record(context.WithoutCancel(ctx), rec)
	}()

	target.TOTPSecret = otp.NormalizeSecret(target.TOTPSecret)
	if s.validator != nil {
		if err := s.validator.Validate(target); err != nil {
			return rec, goerror.NewInvalidConfig(err)
		}
	}

	release, err := s.locker.Acquire(ctx, runlock.Key(target.BaseURL, target.Credentials.Username), s.lockTTL)
	if errors.Is(err, runlock.ErrHeld) {
		slog.WarnContext(ctx, "another run holds this account, skipping")
		rec.Outcome = entity.OutcomeSkipped
		return rec, goerror.NewConflict("another run is authenticating this account")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire run lock", "error", err)
		return rec, goerror.NewServer(err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "failed to release run lock", "error", err)
		}
	}()

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open browser page", "error", err)
		return rec, goerror.NewServer(err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close browser page", "error", err)
		}
	}()

	if !s.forceLogin {
		s.restorePrevious(ctx, page, target)
	}

	if err := page.Navigate(ctx, target.BaseURL); err != nil {
		slog.ErrorContext(ctx, "failed to open base url", "url", target.BaseURL, "error", err)
		return rec, goerror.NewServer(err)
	}

	store := SessionStoreFunc(func(ctx context.Context) (string, error) {
		st, err := page.CaptureSession(ctx)
		if err != nil {
			return "", err
		}
		st.Target = target.Name
		st.CapturedAt = s.clock.Now()
		return s.repoSession.SaveSession(ctx, target.Name, st)
	})

	out, err := s.Authenticate(ctx, AuthenticateInput{
		Probe:       page,
		Driver:      page,
		Store:       store,
		Credentials: target.Credentials,
		Secret:      target.TOTPSecret,
	})
	if out != nil {
		rec.Phase = out.Session.Phase.String()
		rec.Rounds = out.Session.Round
		rec.OTPAttempts = out.Session.OTPAttempt
		rec.Resleeps = out.Session.Resleeps
		rec.SessionHandle = out.SessionHandle
	}

	shot := "login-failed"
	if err == nil {
		rec.Outcome = entity.OutcomeAuthenticated
		shot = "login-success"
	}
	if loc := s.screenshot(ctx, page, runID, target.Name, shot); loc != "" {
		rec.Screenshots = append(rec.Screenshots, loc)
	}

	return rec, err
}

func (s *Usecase) restorePrevious(ctx context.Context, page Page, target entity.Target) {
	st, err := s.repoSession.LoadSession(ctx, target.Name, "")
	if errors.Is(err, goerror.ErrNotFound) {
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to load previous session, logging in from scratch", "error", err)
		return
	}
	if err := page.RestoreSession(ctx, st); err != nil {
		slog.WarnContext(ctx, "failed to restore previous session, logging in from scratch", "error", err)
		return
	}
	slog.InfoContext(ctx, "restored previous session", "cookies", len(st.Cookies), "captured_at", st.CapturedAt)
}

func (s *Usecase) screenshot(ctx context.Context, page Page, runID, target, name string) string {
	png, err := page.Screenshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to take screenshot", "name", name, "error", err)
		return ""
	}
	loc, err := s.repoSession.SaveScreenshot(ctx, runID, target, name, png)
	if err != nil {
		slog.WarnContext(ctx, "failed to save screenshot", "name", name, "error", err)
		return ""
	}
	slog.InfoContext(ctx, "screenshot saved", "name", name, "location", loc)
	return loc
}

// record writes rec to history and publishes it. Both are best effort.
func (s *Usecase) record(ctx context.Context, rec entity.RunRecord) {
	outcome := metric.WithAttributes(attribute.String("outcome", string(rec.Outcome)))
	s.runs.Add(ctx, 1, outcome)
	if !rec.StartedAt.IsZero() && !rec.FinishedAt.IsZero() {
		s.runDuration.Record(ctx, rec.Duration().Seconds(), outcome)
	}

	if err := s.repoHistory.SaveRun(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "failed to save run history", "error", err)
	}
	if err := s.repoEvents.PublishRunCompleted(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "failed to publish run completed", "error", err)
	}
}

// RunAll runs every target with bounded concurrency and returns the records
// in target order. The error joins every failed target's error.
func (s *Usecase) RunAll(ctx context.Context, targets []entity.Target) ([]entity.RunRecord, error) {
	gm := goroutine.NewManager(s.concurrency)
	records := make([]entity.RunRecord, len(targets))

	var errs []error
	for i, t := range targets {
		err := gm.Go(ctx, func(ctx context.Context) error {
			rec, err := s.Run(ctx, t)
			records[i] = rec
			return err
		})
		if err != nil {
			records[i] = entity.RunRecord{Target: t.Name, BaseURL: t.BaseURL, Outcome: entity.OutcomeSkipped, ErrorMessage: err.Error()}
			slog.WarnContext(ctx, "target not started", "target", t.Name, "error", err)
			errs = append(errs, err)
		}
	}

	return records, errors.Join(append(errs, gm.Wait())...)
}
