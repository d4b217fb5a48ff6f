package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const otpExhaustedHint = "check TOTP secret, host clock / TOTP_OFFSET_MS and TOTP period"

type AuthenticateInput struct {
	Probe       PageProbe          `validate:"required"`
	Driver      FormDriver         `validate:"required"`
	Store       SessionStore       `validate:"required"`
	Credentials entity.Credentials `validate:"required"`
	Secret      string             `validate:"required,totpsecret"`
}

// AuthenticateOutput is returned on success and on failure, so callers can
// report how far the run got.
type AuthenticateOutput struct {
	Session       entity.AuthSession
	SessionHandle string
}

// Authenticate drives the page from wherever it is to an authenticated,
// persisted session. It stops at the first ErrorPage, when a round spends
// its OTP budget, or after MaxRounds rounds.
func (s *Usecase) Authenticate(ctx context.Context, in AuthenticateInput) (out *AuthenticateOutput, err error) {
	ctx, span := s.startSpan(ctx, "Authenticate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if out != nil {
			span.SetAttributes(
				attribute.String("phase", out.Session.Phase.String()),
				attribute.Int("rounds", out.Session.Round),
				attribute.Int("otp_attempts", out.Session.OTPAttempt),
			)
		}
		span.End()
	}()

	out = &AuthenticateOutput{Session: entity.AuthSession{Phase: entity.PhaseStart}}
	sess := &out.Session

	if s.validator != nil {
		if err := s.validator.Validate(in); err != nil {
			sess.Phase = entity.PhaseFailed
			return out, goerror.NewInvalidConfig(err)
		}
	}

	var lastErr error
	for round := 1; round <= s.policy.MaxRounds; round++ {
		sess.Round = round
		slog.InfoContext(ctx, "authentication round started", "round", round, "max_rounds", s.policy.MaxRounds)

		state, err := s.classify(ctx, in.Probe)
		if err != nil {
			if ctx.Err() != nil {
				return s.fail(ctx, sess, ctx.Err())
			}
			slog.WarnContext(ctx, "failed to classify page", "round", round, "error", err)
			lastErr = goerror.NewServer(err)
			if err := s.betweenRounds(ctx, round); err != nil {
				return s.fail(ctx, sess, err)
			}
			continue
		}
		sess.LastState = state

		switch state {
		case entity.SessionStateErrorPage:
			return s.fail(ctx, sess, goerror.NewErrorPage("error page detected before login"))

		case entity.SessionStateAuthenticated:
			return s.succeed(ctx, out, in.Store)

		case entity.SessionStateNeedsLogin:
			sess.Phase = entity.PhaseSubmittingCredentials
			if err := s.submitCredentials(ctx, in.Driver, in.Credentials); err != nil {
				if ctx.Err() != nil {
					return s.fail(ctx, sess, ctx.Err())
				}
				slog.WarnContext(ctx, "credential step failed", "round", round, "error", err)
				lastErr = err
				if err := s.betweenRounds(ctx, round); err != nil {
					return s.fail(ctx, sess, err)
				}
				continue
			}
		}

		sess.Phase = entity.PhaseAwaitingSecondFactor
		state, err = s.solveSecondFactor(ctx, sess, in)
		if err != nil {
			if ctx.Err() != nil {
				return s.fail(ctx, sess, ctx.Err())
			}
			if isTerminal(err) {
				return s.fail(ctx, sess, err)
			}
			slog.WarnContext(ctx, "second factor step failed", "round", round, "error", err)
			lastErr = err
			if err := s.betweenRounds(ctx, round); err != nil {
				return s.fail(ctx, sess, err)
			}
			continue
		}
		sess.LastState = state

		switch state {
		case entity.SessionStateAuthenticated:
			return s.succeed(ctx, out, in.Store)
		case entity.SessionStateErrorPage:
			return s.fail(ctx, sess, goerror.NewErrorPage("error page detected after submit"))
		default:
			slog.WarnContext(ctx, "round ended without authentication", "round", round, "state", state.String())
			lastErr = goerror.NewLoginRejected()
		}

		if err := s.betweenRounds(ctx, round); err != nil {
			return s.fail(ctx, sess, err)
		}
	}

	return s.fail(ctx, sess, goerror.NewExhausted(
		goerror.BudgetRounds,
		"authentication rounds exhausted",
		"",
		lastErr,
	))
}

// betweenRounds waits RoundDelay unless round was the last one.
func (s *Usecase) betweenRounds(ctx context.Context, round int) error {
	if round >= s.policy.MaxRounds {
		return nil
	}
	return s.sleep(ctx, s.policy.RoundDelay)
}

func (s *Usecase) succeed(ctx context.Context, out *AuthenticateOutput, store SessionStore) (*AuthenticateOutput, error) {
	out.Session.LastState = entity.SessionStateAuthenticated

	handle, err := store.Persist(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist authenticated session", "error", err)
		out.Session.Phase = entity.PhaseFailed
		return out, goerror.NewServer(err)
	}

	out.Session.Phase = entity.PhaseAuthenticated
	out.SessionHandle = handle
	slog.InfoContext(ctx, "authenticated",
		"rounds", out.Session.Round,
		"otp_attempts", out.Session.OTPAttempt,
		"resleeps", out.Session.Resleeps,
		"session_handle", handle,
	)
	return out, nil
}

func (s *Usecase) fail(ctx context.Context, sess *entity.AuthSession, err error) (*AuthenticateOutput, error) {
	sess.Phase = entity.PhaseFailed
	slog.ErrorContext(ctx, "authentication failed",
		"rounds", sess.Round,
		"otp_attempts", sess.OTPAttempt,
		"last_state", sess.LastState.String(),
		"error", err,
	)
	return &AuthenticateOutput{Session: *sess}, err
}

func isTerminal(err error) bool {
	ge, ok := goerror.As(err)
	return ok && ge.Type() == goerror.TypeTerminal
}
