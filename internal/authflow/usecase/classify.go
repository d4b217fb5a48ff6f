package usecase

import (
	"context"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Classify returns exactly one state for the live page. Questions are asked
// in priority order and later ones are skipped once an earlier one answers
// yes: error indicator, login form, OTP field. A page with none of them is
// Authenticated. A probe error yields Unknown.
func Classify(ctx context.Context, probe PageProbe) (entity.SessionState, error) {
	checks := []struct {
		ask   func(context.Context) (bool, error)
		state entity.SessionState
	}{
		{probe.HasErrorIndicator, entity.SessionStateErrorPage},
		{probe.HasLoginForm, entity.SessionStateNeedsLogin},
		{probe.HasOTPField, entity.SessionStateNeedsSecondFactor},
	}

	for _, c := range checks {
		ok, err := c.ask(ctx)
		if err != nil {
			return entity.SessionStateUnknown, err
		}
		if ok {
			return c.state, nil
		}
	}

	return entity.SessionStateAuthenticated, nil
}

func (s *Usecase) classify(ctx context.Context, probe PageProbe) (entity.SessionState, error) {
	ctx, span := s.startSpan(ctx, "Classify")
	defer span.End()

	state, err := Classify(ctx, probe)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	span.SetAttributes(attribute.String("state", state.String()))
	return state, nil
}
