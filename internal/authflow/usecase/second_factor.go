package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// attemptResult is what one second-factor attempt left on the page.
type attemptResult struct {
	state    entity.SessionState
	rejected bool
}

// solveSecondFactor submits codes until the page leaves NeedsSecondFactor or
// MaxOTPTries attempts of this round are spent. Every call starts with a
// fresh budget; sess.OTPAttempt only keeps the run total for reporting. It
// returns at once when no OTP field is showing.
func (s *Usecase) solveSecondFactor(ctx context.Context, sess *entity.AuthSession, in AuthenticateInput) (entity.SessionState, error) {
	var (
		lastErr error
		attempt int
	)
	for {
		state, err := s.classify(ctx, in.Probe)
		if err != nil {
			return entity.SessionStateUnknown, goerror.NewServer(err)
		}
		sess.LastState = state
		if state != entity.SessionStateNeedsSecondFactor {
			return state, nil
		}

		if attempt >= s.policy.MaxOTPTries {
			return state, goerror.NewExhausted(
				goerror.BudgetOTPTries,
				"second factor attempts exhausted",
				otpExhaustedHint,
				lastErr,
			)
		}

		attempt++
		sess.OTPAttempt++
		more := attempt < s.policy.MaxOTPTries

		res, err := s.attemptSecondFactor(ctx, in, attempt)
		if err != nil {
			if ctx.Err() != nil {
				return entity.SessionStateUnknown, ctx.Err()
			}
			slog.WarnContext(ctx, "second factor attempt failed", "attempt", attempt, "error", err)
			lastErr = err
			if more {
				if err := s.sleep(ctx, s.policy.RecheckDelay); err != nil {
					return entity.SessionStateUnknown, err
				}
			}
			continue
		}

		sess.LastState = res.state
		if res.state != entity.SessionStateNeedsSecondFactor {
			return res.state, nil
		}

		if !res.rejected {
			slog.WarnContext(ctx, "second factor still showing after submit", "attempt", attempt)
			lastErr = goerror.NewActionTimeout("second factor submit", nil)
			continue
		}

		lastErr = goerror.NewInvalidCodeRejected(attempt)
		slog.WarnContext(ctx, "one-time code rejected", "attempt", attempt, "max_attempts", s.policy.MaxOTPTries)
		if more {
			if err := s.resleep(ctx); err != nil {
				return entity.SessionStateUnknown, err
			}
			sess.Resleeps++
		}
	}
}

// resleep waits until just past the next step boundary so the next code
// comes from a fresh step.
func (s *Usecase) resleep(ctx context.Context) error {
	d := s.steps.Remaining()
	slog.InfoContext(ctx, "waiting for next TOTP step", "sleep", d, "step", s.steps.CurrentStep())
	s.otpResleeps.Add(ctx, 1)
	return s.sleep(ctx, d)
}

// attemptSecondFactor is one counted attempt. With the window skew strategy
// it may submit several codes, stopping at the first one that is not
// explicitly rejected. When the page shows neither success nor a rejection,
// it waits RecheckDelay and classifies once more.
func (s *Usecase) attemptSecondFactor(ctx context.Context, in AuthenticateInput, attempt int) (res attemptResult, err error) {
	ctx, span := s.startSpan(ctx, "SecondFactorAttempt")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("state", res.state.String()),
			attribute.Bool("rejected", res.rejected),
		)
		span.End()
	}()

	s.otpAttempts.Add(ctx, 1)

	seen := make(map[string]struct{}, 3)
	for _, delta := range s.policy.SkewDeltas() {
		code, err := s.totp.GenerateCode(in.Secret, s.steps.EpochForStep(delta))
		if err != nil {
			slog.ErrorContext(ctx, "failed to generate one-time code", "error", err)
			return res, goerror.NewServer(err)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		slog.InfoContext(ctx, "submitting one-time code", "attempt", attempt, "step_delta", delta, "step", s.steps.CurrentStep()+delta)
		res, err = s.submitCode(ctx, in, code)
		if err != nil {
			return res, err
		}
		if !res.rejected || res.state != entity.SessionStateNeedsSecondFactor {
			break
		}
	}

	if res.state != entity.SessionStateNeedsSecondFactor || res.rejected {
		return res, nil
	}

	if err := s.sleep(ctx, s.policy.RecheckDelay); err != nil {
		return res, err
	}
	return s.inspectAfterSubmit(ctx, in.Probe)
}

func (s *Usecase) submitCode(ctx context.Context, in AuthenticateInput, code string) (attemptResult, error) {
	if err := in.Driver.FillOTP(ctx, code); err != nil {
		return attemptResult{}, err
	}
	if err := in.Driver.Submit(ctx); err != nil {
		return attemptResult{}, err
	}
	if err := in.Driver.WaitSettled(ctx, s.policy.OTPSettle); err != nil {
		if ctx.Err() != nil {
			return attemptResult{}, ctx.Err()
		}
		slog.WarnContext(ctx, "page did not settle after code submit, re-classifying", "timeout", s.policy.OTPSettle, "error", err)
	}

	return s.inspectAfterSubmit(ctx, in.Probe)
}

func (s *Usecase) inspectAfterSubmit(ctx context.Context, probe PageProbe) (attemptResult, error) {
	state, err := s.classify(ctx, probe)
	if err != nil {
		return attemptResult{}, goerror.NewServer(err)
	}
	if state != entity.SessionStateNeedsSecondFactor {
		return attemptResult{state: state}, nil
	}

	rejected, err := probe.HasInvalidCodeMessage(ctx)
	if err != nil {
		return attemptResult{state: state}, goerror.NewServer(err)
	}
	return attemptResult{state: state, rejected: rejected}, nil
}
