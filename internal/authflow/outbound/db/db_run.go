package db

import (
	"context"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
)

func (s *DB) SaveRun(ctx context.Context, rec entity.RunRecord) (err error) {
	ctx, span := s.startSpan(ctx, "SaveRun")
	defer func() { s.endSpan(span, err) }()

	screenshots := rec.Screenshots
	if screenshots == nil {
		screenshots = []string{}
	}

	_, err = s.conn.Exec(ctx, `
INSERT INTO authpilot_runs (
	run_id, target, base_url, outcome, phase, rounds, otp_attempts, resleeps,
	error_code, error_message, session_handle, screenshots, started_at, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.RunID, rec.Target, rec.BaseURL, string(rec.Outcome), rec.Phase,
		rec.Rounds, rec.OTPAttempts, rec.Resleeps,
		rec.ErrorCode, rec.ErrorMessage, rec.SessionHandle, screenshots,
		rec.StartedAt, rec.FinishedAt,
	)
	return s.mapError(err)
}

// ListRuns returns the latest runs of target, newest first. An empty target
// lists every target.
func (s *DB) ListRuns(ctx context.Context, target string, limit int) (out []entity.RunRecord, err error) {
	ctx, span := s.startSpan(ctx, "ListRuns")
	defer func() { s.endSpan(span, err) }()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.Query(ctx, `
SELECT run_id, target, base_url, outcome, phase, rounds, otp_attempts, resleeps,
	error_code, error_message, session_handle, screenshots, started_at, finished_at
FROM authpilot_runs
WHERE $1 = '' OR target = $1
ORDER BY started_at DESC
LIMIT $2`, target, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec     entity.RunRecord
			outcome string
		)
		if err = rows.Scan(
			&rec.RunID, &rec.Target, &rec.BaseURL, &outcome, &rec.Phase,
			&rec.Rounds, &rec.OTPAttempts, &rec.Resleeps,
			&rec.ErrorCode, &rec.ErrorMessage, &rec.SessionHandle, &rec.Screenshots,
			&rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, s.mapError(err)
		}
		rec.Outcome = entity.Outcome(outcome)
		out = append(out, rec)
	}

	err = s.mapError(rows.Err())
	return out, err
}

// Noop discards history. It is used when no database is configured.
type Noop struct{}

func (Noop) SaveRun(context.Context, entity.RunRecord) error { return nil }

func (Noop) ListRuns(context.Context, string, int) ([]entity.RunRecord, error) { return nil, nil }
