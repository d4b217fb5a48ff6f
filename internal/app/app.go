package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/authflow/outbound/browser"
	"github.com/shandysiswandi/authpilot/internal/authflow/usecase"
	"github.com/shandysiswandi/authpilot/internal/pkg/clock"
	"github.com/shandysiswandi/authpilot/internal/pkg/config"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"github.com/shandysiswandi/authpilot/internal/pkg/instrument"
	"github.com/shandysiswandi/authpilot/internal/pkg/messaging"
	"github.com/shandysiswandi/authpilot/internal/pkg/otp"
	"github.com/shandysiswandi/authpilot/internal/pkg/runlock"
	"github.com/shandysiswandi/authpilot/internal/pkg/seal"
	"github.com/shandysiswandi/authpilot/internal/pkg/storage"
	"github.com/shandysiswandi/authpilot/internal/pkg/uid"
	"github.com/shandysiswandi/authpilot/internal/pkg/validator"
)

// Options controls how the application loads its configuration.
type Options struct {
	// ConfigPath is an optional YAML file. Empty falls back to CONFIG_PATH.
	ConfigPath string
	// EnvFiles are dotenv files loaded first. Nil means ".env".
	EnvFiles []string
	// LogOutput receives structured logs. Nil means stderr.
	LogOutput io.Writer
}

// App wires dependencies and manages their lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	validator  validator.Validator
	clock      clock.Clock
	uuid       uid.StringID
	totp       otp.OTP
	totpConfig otp.Config
	policy     entity.Policy
	sealer     seal.Sealer
	targets    []entity.Target

	// resources
	dbConn      *pgxpool.Pool
	cacheConn   *redis.Client
	locker      runlock.Locker
	messaging   messaging.Publisher
	sessions    storage.Storage
	screenshots storage.Storage
	browser     *browser.Lazy

	// modules
	authflow *usecase.Usecase

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New loads configuration and connects every configured resource. Errors
// caused by configuration are goerror CodeInvalidConfig values. On error
// everything opened so far is closed again.
func New(opts Options) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{ctx: ctx, cancel: cancel, opts: opts}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", app.initConfig},
		{"instrument", app.initInstrument},
		{"libraries", app.initLibraries},
		{"targets", app.initTargets},
		{"cache", app.initCache},
		{"database", app.initDatabase},
		{"storage", app.initStorage},
		{"messaging", app.initMessaging},
		{"browser", app.initBrowser},
		{"modules", app.initModules},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			slog.Error("failed to init application", "step", step.name, "error", err)
			app.Stop(context.Background())
			return nil, err
		}
	}

	app.watchSignals()
	return app, nil
}

// Context is canceled on SIGINT/SIGTERM or Stop.
func (a *App) Context() context.Context {
	return a.ctx
}

// Authflow returns the authentication usecase.
func (a *App) Authflow() *usecase.Usecase {
	return a.authflow
}

// Targets returns the configured targets in declaration order.
func (a *App) Targets() []entity.Target {
	return a.targets
}

// Target returns the configured target with the given name. An empty name
// selects the only target when exactly one is configured.
func (a *App) Target(name string) (entity.Target, error) {
	if name == "" && len(a.targets) == 1 {
		return a.targets[0], nil
	}
	for _, t := range a.targets {
		if t.Name == name {
			return t, nil
		}
	}
	switch {
	case name == "" && len(a.targets) == 0:
		return entity.Target{}, goerror.NewInvalidConfig(nil, "target", "no target configured")
	case name == "":
		return entity.Target{}, goerror.NewInvalidConfig(nil, "target", "several targets configured, pick one with --target")
	}
	return entity.Target{}, goerror.NewInvalidConfig(nil, "target", "unknown target "+name)
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func invalidConfig(err error) error {
	if err == nil {
		return nil
	}
	var ge *goerror.Error
	if errors.As(err, &ge) {
		return err
	}
	return goerror.NewInvalidConfig(err)
}
