package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"go.opentelemetry.io/otel/codes"
)

// submitCredentials fills and submits the first factor. A settle timeout is
// only logged: the next classification decides what happened.
func (s *Usecase) submitCredentials(ctx context.Context, d FormDriver, c entity.Credentials) (err error) {
	ctx, span := s.startSpan(ctx, "SubmitCredentials")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := d.FillUsername(ctx, c.Username); err != nil {
		return err
	}
	if err := d.FillPassword(ctx, c.Password); err != nil {
		return err
	}
	if err := d.Submit(ctx); err != nil {
		return err
	}

	if err := d.WaitSettled(ctx, s.policy.CredentialSettle); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.WarnContext(ctx, "page did not settle after credentials, continuing", "timeout", s.policy.CredentialSettle, "error", err)
	}

	slog.InfoContext(ctx, "credentials submitted", "username", c.Username)
	return nil
}
