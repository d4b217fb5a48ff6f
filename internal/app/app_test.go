package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/config"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearTargetEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"BASE_URL", "EPROC_USERNAME", "EPROC_PASSWORD", "TOTP_SECRET", "CONFIG_PATH", "REDIS_URL", "DATABASE_URL", "MESSAGING_DRIVER", "STORAGE_DRIVER", "TOTP_SKEW_STRATEGY"} {
		t.Setenv(name, "")
	}
}

func newTestConfig(t *testing.T, yaml string) config.Config {
	t.Helper()

	path := ""
	if yaml != "" {
		path = filepath.Join(t.TempDir(), "authpilot.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	}

	cfg, err := config.NewViper(config.Options{
		Path:       path,
		EnvFiles:   []string{},
		Defaults:   defaults(),
		EnvAliases: envAliases(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })
	return cfg
}

func TestLoadTargets(t *testing.T) {
	t.Run("SingleFromEnvironment", func(t *testing.T) {
		// Arrange
		clearTargetEnv(t)
		t.Setenv("BASE_URL", " https://eproc.example.test ")
		t.Setenv("EPROC_USERNAME", "alice")
		t.Setenv("EPROC_PASSWORD", "s3cret")
		t.Setenv("TOTP_SECRET", "jbsw y3dp ehpk 3pxp")
		cfg := newTestConfig(t, "")

		// Act
		targets, err := loadTargets(cfg)

		// Assert
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, entity.Target{
			Name:        "default",
			BaseURL:     "https://eproc.example.test",
			Credentials: entity.Credentials{Username: "alice", Password: "s3cret"},
			TOTPSecret:  "JBSWY3DPEHPK3PXP",
		}, targets[0])
	})

	t.Run("NothingConfigured", func(t *testing.T) {
		// Arrange
		clearTargetEnv(t)
		cfg := newTestConfig(t, "")

		// Act
		targets, err := loadTargets(cfg)

		// Assert
		require.NoError(t, err)
		assert.Empty(t, targets)
	})

	t.Run("ListWithEnvironmentReferences", func(t *testing.T) {
		// Arrange
		clearTargetEnv(t)
		t.Setenv("AUTHPILOT_TEST_PASSWORD", "from-env")
		cfg := newTestConfig(t, `
targets:
  - name: primary
    base_url: https://a.example.test
    username: alice
    password: ${AUTHPILOT_TEST_PASSWORD}
    totp_secret: JBSWY3DPEHPK3PXP
  - base_url: https://b.example.test
    username: bob
    password: pw
    totp_secret: gezdgnbvgy3tqojq
`)

		// Act
		targets, err := loadTargets(cfg)

		// Assert
		require.NoError(t, err)
		require.Len(t, targets, 2)
		assert.Equal(t, "primary", targets[0].Name)
		assert.Equal(t, "from-env", targets[0].Credentials.Password)
		assert.Equal(t, "target-2", targets[1].Name)
		assert.Equal(t, "GEZDGNBVGY3TQOJQ", targets[1].TOTPSecret)
	})

	t.Run("DuplicateNames", func(t *testing.T) {
		// Arrange
		clearTargetEnv(t)
		cfg := newTestConfig(t, `
targets:
  - name: same
    base_url: https://a.example.test
  - name: same
    base_url: https://b.example.test
`)

		// Act
		targets, err := loadTargets(cfg)

		// Assert
		assert.Nil(t, targets)
		assert.ErrorContains(t, err, `duplicate name "same"`)
	})
}

func TestLoadPolicy(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		// Arrange
		clearTargetEnv(t)
		cfg := newTestConfig(t, "")

		// Act
		policy, err := loadPolicy(cfg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.DefaultPolicy(), policy)
	})

	t.Run("Overrides", func(t *testing.T) {
		// Arrange
		clearTargetEnv(t)
		t.Setenv("TOTP_SKEW_STRATEGY", "Window")
		t.Setenv("TOTP_TRIES", "2")
		cfg := newTestConfig(t, "auth:\n  otp_settle_ms: 5000\n")

		// Act
		policy, err := loadPolicy(cfg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.SkewStrategyWindow, policy.Skew)
		assert.Equal(t, 2, policy.MaxOTPTries)
		assert.Equal(t, 5*time.Second, policy.OTPSettle)
	})

	t.Run("UnknownSkewStrategy", func(t *testing.T) {
		// Arrange
		clearTargetEnv(t)
		t.Setenv("TOTP_SKEW_STRATEGY", "sideways")
		cfg := newTestConfig(t, "")

		// Act
		_, err := loadPolicy(cfg)

		// Assert
		assert.ErrorIs(t, err, entity.ErrUnknownSkewStrategy)
	})
}

func TestLoadTOTPConfig(t *testing.T) {
	// Arrange
	clearTargetEnv(t)
	t.Setenv("TOTP_OFFSET_MS", "-1500")
	t.Setenv("TOTP_DIGITS", "8")
	cfg := newTestConfig(t, "")

	// Act
	got := loadTOTPConfig(cfg)

	// Assert
	assert.Equal(t, uint(30), got.Period)
	assert.Equal(t, 8, got.Digits)
	assert.Equal(t, -1500*time.Millisecond, got.Offset)
	assert.Empty(t, got.Secret)
}

func TestNew(t *testing.T) {
	isolate := func(t *testing.T) {
		t.Helper()
		clearTargetEnv(t)
		dir := t.TempDir()
		t.Setenv("AUTH_DIR", filepath.Join(dir, "auth"))
		t.Setenv("OUT_DIR", filepath.Join(dir, "out"))
		t.Setenv("SESSION_SEAL_KEY", "")
		t.Setenv("OTEL_ENABLED", "false")
	}

	t.Run("Success", func(t *testing.T) {
		// Arrange
		isolate(t)
		t.Setenv("BASE_URL", "https://eproc.example.test")
		t.Setenv("EPROC_USERNAME", "alice")
		t.Setenv("EPROC_PASSWORD", "pw")
		t.Setenv("TOTP_SECRET", "JBSWY3DPEHPK3PXP")

		// Act
		a, err := New(Options{EnvFiles: []string{}, LogOutput: io.Discard})

		// Assert
		require.NoError(t, err)
		t.Cleanup(func() { a.Stop(context.Background()) })
		assert.NotNil(t, a.Authflow())
		assert.Len(t, a.Targets(), 1)
		assert.False(t, a.browser.Started())

		target, err := a.Target("")
		require.NoError(t, err)
		assert.Equal(t, "default", target.Name)

		_, err = a.Target("other")
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidConfig))
	})

	t.Run("StopCancelsContext", func(t *testing.T) {
		// Arrange
		isolate(t)
		a, err := New(Options{EnvFiles: []string{}, LogOutput: io.Discard})
		require.NoError(t, err)

		// Act
		a.Stop(context.Background())

		// Assert
		assert.ErrorIs(t, a.Context().Err(), context.Canceled)
		assert.Empty(t, a.closers)
	})

	t.Run("InvalidSkewStrategy", func(t *testing.T) {
		// Arrange
		isolate(t)
		t.Setenv("TOTP_SKEW_STRATEGY", "sideways")

		// Act
		a, err := New(Options{EnvFiles: []string{}, LogOutput: io.Discard})

		// Assert
		assert.Nil(t, a)
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidConfig))
	})

	t.Run("InvalidSealKey", func(t *testing.T) {
		// Arrange
		isolate(t)
		t.Setenv("SESSION_SEAL_KEY", "dG9vLXNob3J0")

		// Act
		a, err := New(Options{EnvFiles: []string{}, LogOutput: io.Discard})

		// Assert
		assert.Nil(t, a)
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidConfig))
	})

	t.Run("UnknownMessagingDriver", func(t *testing.T) {
		// Arrange
		isolate(t)
		t.Setenv("MESSAGING_DRIVER", "carrier-pigeon")

		// Act
		a, err := New(Options{EnvFiles: []string{}, LogOutput: io.Discard})

		// Assert
		assert.Nil(t, a)
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidConfig))
	})

	t.Run("UnknownTargetName", func(t *testing.T) {
		// Arrange
		isolate(t)
		a, err := New(Options{EnvFiles: []string{}, LogOutput: io.Discard})
		require.NoError(t, err)
		t.Cleanup(func() { a.Stop(context.Background()) })

		// Act
		_, err = a.Target("")

		// Assert
		assert.True(t, goerror.HasCode(err, goerror.CodeInvalidConfig))
	})
}
