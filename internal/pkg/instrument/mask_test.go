package instrument

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMasker_Matches(t *testing.T) {
	m := newMasker([]string{" Password ", "", "totp_secret"})

	tests := map[string]bool{
		"password":             true,
		"PASSWORD":             true,
		"target.password":      true,
		"target.totp_secret":   true,
		"eproc_password":       false,
		"password_hint.length": false,
		"username":             false,
	}
	for key, want := range tests {
		t.Run(key, func(t *testing.T) {
			assert.Equal(t, want, m.matches(key))
		})
	}
}

func TestMasker_Attr(t *testing.T) {
	m := newMasker(DefaultMaskFields)

	t.Run("Group", func(t *testing.T) {
		got := m.attr(slog.Group("target", slog.String("name", "primary"), slog.String("password", "pw")))

		group := got.Value.Group()
		assert.Equal(t, "primary", group[0].Value.String())
		assert.Equal(t, maskedValue, group[1].Value.String())
	})

	t.Run("StringMap", func(t *testing.T) {
		got := m.attr(slog.Any("headers", map[string]string{"cookie": "JSESSIONID=1", "accept": "*/*"}))

		assert.Equal(t, map[string]any{"cookie": maskedValue, "accept": "*/*"}, got.Value.Any())
	})

	t.Run("JSONBytes", func(t *testing.T) {
		got := m.attr(slog.Any("body", []byte(`[{"otp":"123456"}]`)))

		assert.Equal(t, `[{"otp":"***"}]`, got.Value.String())
	})

	t.Run("PlainString", func(t *testing.T) {
		got := m.attr(slog.String("url", "https://eproc.example.test"))

		assert.Equal(t, "https://eproc.example.test", got.Value.String())
	})
}

func TestLogging_MasksWithAttrs(t *testing.T) {
	buf := captureLogs(t, &Config{})

	slog.With("totp_secret", "JBSWY3DPEHPK3PXP").Info("generated")

	line := decodeLine(t, buf)
	assert.Equal(t, "***", line["totp_secret"])
}
