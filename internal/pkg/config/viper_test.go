package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViper_EnvAndDefaults(t *testing.T) {
	t.Setenv("TOTP_OFFSET_MS", "-1500")
	t.Setenv("AUTH_MAX_ROUNDS", "5")
	t.Setenv("OTEL_MASK_FIELDS", "password, secret,,code")

	cfg, err := NewViper(Options{
		Defaults: map[string]any{
			"totp.period":      30,
			"auth.max_rounds":  3,
			"auth.headless":    true,
			"totp.offset_ms":   0,
			"otel.mask_fields": "password",
		},
		EnvAliases: map[string][]string{
			"totp.offset_ms": {"TOTP_OFFSET_MS"},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })

	assert.Equal(t, uint(30), cfg.GetUint("totp.period"))
	assert.Equal(t, -1500*time.Millisecond, cfg.GetMillisecond("totp.offset_ms"))
	assert.Equal(t, 5, cfg.GetInt("auth.max_rounds"))
	assert.True(t, cfg.GetBool("auth.headless"))
	assert.Equal(t, []string{"password", "secret", "code"}, cfg.GetArray("otel.mask_fields"))
	assert.False(t, cfg.IsSet("does.not.exist"))
}

func TestNewViper_AliasOrder(t *testing.T) {
	t.Setenv("EPROC_USERNAME", "legacy")

	cfg, err := NewViper(Options{
		EnvAliases: map[string][]string{
			"target.username": {"AUTH_USERNAME", "EPROC_USERNAME"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.GetString("target.username"))

	t.Setenv("AUTH_USERNAME", "preferred")
	assert.Equal(t, "preferred", cfg.GetString("target.username"))
}

func TestNewViper_FileAndEnvFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "authpilot.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
totp:
  period: 60
targets:
  - name: main
    base_url: https://example.test/login
    username: alice
  - name: backup
    base_url: https://backup.example.test
    username: bob
`), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("AUTHPILOT_TEST_SEAL=c2VjcmV0\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("AUTHPILOT_TEST_SEAL") })

	cfg, err := NewViper(Options{
		Path:     yamlPath,
		EnvFiles: []string{envPath, filepath.Join(dir, "missing.env")},
	})
	require.NoError(t, err)

	assert.Equal(t, uint(60), cfg.GetUint("totp.period"))
	assert.Equal(t, []byte("secret"), cfg.GetBinary("authpilot_test_seal"))

	var targets []struct {
		Name     string `mapstructure:"name"`
		BaseURL  string `mapstructure:"base_url"`
		Username string `mapstructure:"username"`
	}
	require.NoError(t, cfg.UnmarshalKey("targets", &targets))
	require.Len(t, targets, 2)
	assert.Equal(t, "main", targets[0].Name)
	assert.Equal(t, "https://backup.example.test", targets[1].BaseURL)
}

func TestNewViper_MissingFile(t *testing.T) {
	_, err := NewViper(Options{Path: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}
