package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/authpilot/internal/authflow/outbound/browser"
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

const pingTimeout = 5 * time.Second

func (a *App) initConfig() error {
	path := a.opts.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	envFiles := a.opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}

	cfg, err := config.NewViper(config.Options{
		Path:       path,
		EnvFiles:   envFiles,
		Defaults:   defaults(),
		EnvAliases: envAliases(),
	})
	if err != nil {
		return goerror.NewInvalidConfig(err)
	}

	if tz := cfg.GetString("app.tz"); tz != "" {
		//nolint:errcheck,gosec // ignore error
		os.Setenv("TZ", tz)
	}

	a.config = cfg
	a.addCloser("Config", func(context.Context) error {
		return cfg.Close()
	})
	return nil
}

func (a *App) initInstrument() error {
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
		LogFormat:        a.config.GetString("instrument.log_format"),
		LogOutput:        a.opts.LogOutput,
	})
	if err != nil {
		return fmt.Errorf("instrument: %w", err)
	}

	a.ins = ins
	a.addCloser("Instrument", ins.Shutdown)
	return nil
}

func (a *App) initLibraries() error {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()

	v, err := validator.NewV10Validator()
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	}
	a.validator = v

	a.totpConfig = loadTOTPConfig(a.config)
	if err := a.validator.Validate(struct {
		Period uint `validate:"gt=0"`
		Digits int  `validate:"min=6,max=8"`
	}{a.totpConfig.Period, a.totpConfig.Digits}); err != nil {
		return goerror.NewInvalidConfig(err)
	}
	a.totp = otp.NewTOTPFromConfig(a.totpConfig)

	policy, err := loadPolicy(a.config)
	if err != nil {
		return goerror.NewInvalidConfig(err)
	}
	a.policy = policy

	sealer, err := seal.New(a.config.GetString("seal.key"))
	if err != nil {
		return goerror.NewInvalidConfig(err, "seal.key", err.Error())
	}
	a.sealer = sealer

	return nil
}

func (a *App) initTargets() error {
	targets, err := loadTargets(a.config)
	if err != nil {
		return goerror.NewInvalidConfig(err)
	}
	a.targets = targets
	return nil
}

func (a *App) initCache() error {
	a.locker = runlock.Noop{}

	url := strings.TrimSpace(a.config.GetString("redis.url"))
	if url == "" {
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return goerror.NewInvalidConfig(err)
	}

	rdb := redis.NewClient(opt)
	a.addCloser("Redis", func(context.Context) error {
		return rdb.Close()
	})

	pingCtx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	a.cacheConn = rdb
	a.locker = runlock.NewRedis(rdb)
	return nil
}

func (a *App) initDatabase() error {
	url := strings.TrimSpace(a.config.GetString("database.url"))
	if url == "" {
		return nil
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return goerror.NewInvalidConfig(err)
	}

	cfg.MaxConns = a.config.GetInt32("database.pool.max_conns")
	cfg.MinConns = a.config.GetInt32("database.pool.min_conns")
	cfg.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	cfg.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	cfg.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	a.addCloser("Database", func(context.Context) error {
		pool.Close()
		return nil
	})

	pingCtx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	a.dbConn = pool
	return nil
}

func (a *App) initStorage() error {
	driver := strings.TrimSpace(a.config.GetString("storage.driver"))

	sessions, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		Local: storage.LocalOptions{
			Dir: a.config.GetString("storage.local.dir"),
		},
		S3: storage.S3Options{
			Bucket:       strings.TrimSpace(a.config.GetString("storage.s3.bucket")),
			Region:       strings.TrimSpace(a.config.GetString("storage.s3.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.s3.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.s3.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.s3.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.s3.session_token")),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		MinIO: storage.MinIOOptions{
			Bucket:       strings.TrimSpace(a.config.GetString("storage.minio.bucket")),
			Region:       strings.TrimSpace(a.config.GetString("storage.minio.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.minio.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.minio.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.minio.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.minio.session_token")),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	})
	if err != nil {
		return goerror.NewInvalidConfig(err, "storage.driver", driver)
	}
	a.sessions = sessions
	a.addCloser("Storage", func(context.Context) error {
		return sessions.Close()
	})

	// Screenshots always land on the local disk for the operator to open.
	screenshots, err := storage.NewLocal(storage.LocalOptions{
		Dir: a.config.GetString("screenshots.dir"),
	})
	if err != nil {
		return fmt.Errorf("screenshots: %w", err)
	}
	a.screenshots = screenshots
	a.addCloser("Screenshots", func(context.Context) error {
		return screenshots.Close()
	})

	return nil
}

func (a *App) initMessaging() error {
	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NATS: messaging.NATSConfig{
			URL:            a.config.GetString("messaging.nats.url"),
			ConnectTimeout: a.config.GetSecond("messaging.nats.timeout_seconds"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers:      a.config.GetArray("messaging.kafka.brokers"),
			WriteTimeout: a.config.GetSecond("messaging.kafka.write_timeout_seconds"),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		if errors.Is(err, messaging.ErrUnknownDriver) {
			return goerror.NewInvalidConfig(err)
		}
		return err
	}

	a.messaging = client
	a.addCloser("Messaging", func(context.Context) error {
		return client.Close()
	})
	return nil
}

func (a *App) initBrowser() error {
	a.browser = browser.NewLazy(browser.Options{
		Headless:        a.config.GetBool("browser.headless"),
		HumanDelays:     a.config.GetBool("browser.human_delays"),
		UserAgent:       a.config.GetString("browser.user_agent"),
		WindowSize:      a.config.GetString("browser.window_size"),
		Language:        a.config.GetString("browser.language"),
		StartTimeout:    a.config.GetSecond("browser.start_timeout_seconds"),
		CommandTimeout:  a.config.GetSecond("browser.command_timeout_seconds"),
		PageLoadTimeout: a.config.GetSecond("browser.page_load_timeout_seconds"),
		ScriptTimeout:   a.config.GetSecond("browser.script_timeout_seconds"),
		Sleeper:         a.clock,
	})
	a.addCloser("Browser", func(context.Context) error {
		return a.browser.Close()
	})
	return nil
}
