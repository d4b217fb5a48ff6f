package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
)

type ListRunsInput struct {
	Target string
	Limit  int `validate:"gte=0,lte=500"`
}

// ListRuns returns recorded runs, newest first.
func (s *Usecase) ListRuns(ctx context.Context, in ListRunsInput) ([]entity.RunRecord, error) {
	ctx, span := s.startSpan(ctx, "ListRuns")
	defer span.End()

	if s.validator != nil {
		if err := s.validator.Validate(in); err != nil {
			return nil, goerror.NewInvalidConfig(err)
		}
	}
	if in.Limit == 0 {
		in.Limit = 20
	}

	runs, err := s.repoHistory.ListRuns(ctx, in.Target, in.Limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list runs", "target", in.Target, "error", err)
		return nil, goerror.NewServer(err)
	}
	return runs, nil
}
