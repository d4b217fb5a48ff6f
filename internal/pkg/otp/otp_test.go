package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base32 of the ASCII seed "12345678901234567890" from RFC 6238 appendix B.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestNormalizeSecret(t *testing.T) {
	assert.Equal(t, "JBSWY3DPEHPK3PXP", NormalizeSecret(" jbsw y3dp\tehpk 3pxp\n"))
	assert.Empty(t, NormalizeSecret(" \t "))
}

func TestNewTOTP_Defaults(t *testing.T) {
	o := NewTOTP(0, 4)
	assert.Equal(t, DefaultPeriod, o.Period())
	assert.Equal(t, 6, o.Digits())

	o = NewTOTP(60, 8)
	assert.Equal(t, uint(60), o.Period())
	assert.Equal(t, 8, o.Digits())
}

func TestTOTP_GenerateCode_RFC6238(t *testing.T) {
	tests := []struct {
		unix   int64
		digits int
		want   string
	}{
		{unix: 59, digits: 8, want: "94287082"},
		{unix: 1111111109, digits: 8, want: "07081804"},
		{unix: 1111111111, digits: 8, want: "14050471"},
		{unix: 1234567890, digits: 8, want: "89005924"},
		{unix: 2000000000, digits: 8, want: "69279037"},
		{unix: 59, digits: 6, want: "287082"},
		{unix: 1111111109, digits: 6, want: "081804"},
		{unix: 1234567890, digits: 6, want: "005924"},
		{unix: 2000000000, digits: 7, want: "9279037"},
	}

	for _, tt := range tests {
		o := NewTOTP(30, tt.digits)
		got, err := o.GenerateCode(rfcSecret, time.Unix(tt.unix, 0))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "unix=%d digits=%d", tt.unix, tt.digits)
		assert.Len(t, got, tt.digits)
	}
}

func TestTOTP_GenerateCode_Deterministic(t *testing.T) {
	o := NewTOTP(30, 6)
	at := time.UnixMilli(1_700_000_012_345)

	first, err := o.GenerateCode(rfcSecret, at)
	require.NoError(t, err)

	for range 5 {
		again, err := o.GenerateCode(rfcSecret, at)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// Same step, different instant.
	sameStep, err := o.GenerateCode(rfcSecret, at.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, first, sameStep)
}

func TestTOTP_GenerateCode_SpacedSecret(t *testing.T) {
	o := NewTOTP(30, 6)
	at := time.Unix(59, 0)

	got, err := o.GenerateCode("gezd gnbv gy3t qojq gezd gnbv gy3t qojq", at)
	require.NoError(t, err)
	assert.Equal(t, "287082", got)
}

func TestTOTP_GenerateCode_InvalidSecret(t *testing.T) {
	o := NewTOTP(30, 6)

	_, err := o.GenerateCode("not-base32!", time.Unix(59, 0))
	assert.Error(t, err)
}

func TestTOTP_Validate(t *testing.T) {
	o := NewTOTP(30, 6)
	at := time.Unix(1234567890, 0)

	assert.True(t, o.Validate("005924", rfcSecret, at))
	assert.False(t, o.Validate("005925", rfcSecret, at))
	assert.False(t, o.Validate("005924", rfcSecret, at.Add(30*time.Second)))
}
