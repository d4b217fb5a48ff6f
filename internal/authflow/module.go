package authflow

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/authflow/outbound/db"
	"github.com/shandysiswandi/authpilot/internal/authflow/outbound/mq"
	"github.com/shandysiswandi/authpilot/internal/authflow/outbound/session"
	"github.com/shandysiswandi/authpilot/internal/authflow/usecase"
	"github.com/shandysiswandi/authpilot/internal/pkg/clock"
	"github.com/shandysiswandi/authpilot/internal/pkg/instrument"
	"github.com/shandysiswandi/authpilot/internal/pkg/messaging"
	"github.com/shandysiswandi/authpilot/internal/pkg/otp"
	"github.com/shandysiswandi/authpilot/internal/pkg/runlock"
	"github.com/shandysiswandi/authpilot/internal/pkg/seal"
	"github.com/shandysiswandi/authpilot/internal/pkg/storage"
	"github.com/shandysiswandi/authpilot/internal/pkg/uid"
	"github.com/shandysiswandi/authpilot/internal/pkg/validator"
)

// Browser opens pages for target runs.
type Browser interface {
	NewPage(ctx context.Context) (usecase.Page, error)
}

type Dependency struct {
	Ctx         context.Context
	DBConn      *pgxpool.Pool
	Locker      runlock.Locker
	Messaging   messaging.Publisher
	Sealer      seal.Sealer
	Sessions    storage.Storage            `validate:"required"`
	Screenshots storage.Storage            `validate:"required"`
	Browser     Browser                    `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	Clock       clock.Clock                `validate:"required"`
	Totp        otp.OTP                    `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	TOTPConfig  otp.Config                 `validate:"-"`
	Policy      entity.Policy
	Concurrency int `validate:"gte=0"`
	ForceLogin  bool
	LockTTL     time.Duration
}

func New(dep Dependency) (*usecase.Usecase, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	var history interface {
		SaveRun(ctx context.Context, rec entity.RunRecord) error
		ListRuns(ctx context.Context, target string, limit int) ([]entity.RunRecord, error)
	} = db.Noop{}
	if dep.Messaging == nil {
		dep.Messaging = messaging.Noop{}
	}
	if dep.DBConn != nil {
		dbRuns := db.NewDB(dep.DBConn, dep.Instrument)
		if err := dbRuns.Migrate(dep.Ctx); err != nil {
			return nil, err
		}
		history = dbRuns
	}

	repoSession := session.NewStore(dep.Sessions, dep.Screenshots, dep.Sealer, dep.Instrument)
	repoEvents := mq.NewMessaging(dep.Messaging, dep.Instrument)

	return usecase.New(usecase.Dependency{
		RepoSession: repoSession,
		RepoHistory: history,
		RepoEvents:  repoEvents,
		Browser:     dep.Browser,
		Locker:      dep.Locker,
		Validator:   dep.Validator,
		UUID:        dep.UUID,
		Totp:        dep.Totp,
		TOTPConfig:  dep.TOTPConfig,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
		Concurrency: dep.Concurrency,
		Policy:      dep.Policy,
		ForceLogin:  dep.ForceLogin,
		LockTTL:     dep.LockTTL,
	}), nil
}
