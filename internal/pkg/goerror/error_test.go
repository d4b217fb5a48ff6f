package goerror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "Plain", err: errors.New("boom"), want: CodeInternal},
		{name: "FieldNotFound", err: NewFieldNotFound("username"), want: CodeFieldNotFound},
		{name: "Wrapped", err: fmt.Errorf("round 2: %w", NewActionTimeout("submit", context.DeadlineExceeded)), want: CodeActionTimeout},
		{name: "ErrorPage", err: NewErrorPage(""), want: CodeErrorPageDetected},
		{name: "Config", err: NewInvalidConfig(nil, "totp_secret", "is required"), want: CodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestNewExhausted(t *testing.T) {
	last := NewFieldNotFound("otp")
	err := NewExhausted(BudgetOTPTries, "second factor failed after 4 attempts", "check the TOTP secret", last)

	ge, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeExhaustedRetries, ge.Code())
	assert.Equal(t, TypeTerminal, ge.Type())
	assert.Equal(t, BudgetOTPTries, ge.Budget())
	assert.Equal(t, "check the TOTP secret", ge.Hint())
	assert.False(t, ge.Retryable())
	assert.Equal(t, 1, ge.ExitCode())
	assert.Contains(t, err.Error(), "second factor failed after 4 attempts; check the TOTP secret")
	assert.True(t, HasCode(err, CodeFieldNotFound))
	assert.False(t, HasCode(err, CodeErrorPageDetected))
}

func TestError_Unwrap(t *testing.T) {
	err := NewActionTimeout("page settle", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "page settle timed out: context deadline exceeded", err.Error())

	ge, ok := As(err)
	require.True(t, ok)
	assert.True(t, ge.Retryable())
}

func TestNewInvalidConfig(t *testing.T) {
	err := NewInvalidConfig(nil, "base_url", "is required")
	ge, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"base_url": "is required"}, ge.Fields())
	assert.Equal(t, 2, ge.ExitCode())

	odd := NewInvalidConfig(nil, "base_url")
	assert.Equal(t, "Invalid configuration", odd.Error())
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("account is locked by another run")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, CodeConflict, CodeOf(err))
}

func TestNewLoginRejected(t *testing.T) {
	err := NewLoginRejected()
	assert.Equal(t, CodeLoginRejected, CodeOf(err))
	assert.Equal(t, "ERROR_CODE_LOGIN_REJECTED", CodeLoginRejected.String())

	ge, ok := As(err)
	assert.True(t, ok)
	assert.True(t, ge.Retryable())
	assert.Equal(t, 1, ge.ExitCode())
}
