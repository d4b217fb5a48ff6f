package otp

import (
	"strings"
	"time"
	"unicode"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultPeriod is the common 30-second TOTP period.
const DefaultPeriod uint = 30

// Config is the immutable TOTP configuration of a target.
type Config struct {
	// Period is the time-step length in seconds.
	Period uint `validate:"gt=0"`
	// Digits is the code length.
	Digits int `validate:"min=6,max=8"`
	// Secret is the base32 shared secret, already normalized.
	Secret string `validate:"required"`
	// Offset is added to the local clock before computing the step.
	Offset time.Duration
}

// PeriodDuration returns Period as a time.Duration.
func (c Config) PeriodDuration() time.Duration {
	return time.Duration(c.Period) * time.Second
}

// NormalizeSecret strips every whitespace rune and upper-cases the secret.
// Authenticator apps usually display secrets in groups of four characters.
func NormalizeSecret(secret string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, secret))
}

// OTP defines the contract for TOTP operations.
type OTP interface {
	// GenerateCode creates a TOTP code for the given secret and time.
	GenerateCode(secret string, at time.Time) (string, error)
	// Validate checks whether a code is valid at the given time.
	Validate(code, secret string, at time.Time) bool
}

// TOTP implements OTP using the Time-based One-Time Password algorithm.
type TOTP struct {
	period uint
	digits otp.Digits
}

// NewTOTP constructs a TOTP instance with sensible defaults.
//
// If digits is outside 6..8, it falls back to 6 digits. If period is 0, it
// uses the common 30-second period.
func NewTOTP(period uint, digits int) *TOTP {
	if digits < 6 || digits > 8 {
		digits = int(otp.DigitsSix)
	}

	if period == 0 {
		period = DefaultPeriod
	}

	return &TOTP{
		period: period,
		digits: otp.Digits(digits),
	}
}

// NewTOTPFromConfig builds a TOTP matching cfg.
func NewTOTPFromConfig(cfg Config) *TOTP {
	return NewTOTP(cfg.Period, cfg.Digits)
}

// Period returns the configured step length in seconds.
func (o *TOTP) Period() uint {
	return o.period
}

// Digits returns the configured code length.
func (o *TOTP) Digits() int {
	return o.digits.Length()
}

// GenerateCode creates a TOTP code for the given secret and time.
//
// The counter is floor(unix(at) / period), so any instant inside a step
// yields the same code.
func (o *TOTP) GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(NormalizeSecret(secret), at, o.opts(0))
}

// Validate checks whether a code is valid at the given time, without any
// skew window.
func (o *TOTP) Validate(code, secret string, at time.Time) bool {
	rv, err := totp.ValidateCustom(code, NormalizeSecret(secret), at, o.opts(0))

	return rv && err == nil
}

func (o *TOTP) opts(skew uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    o.period,
		Skew:      skew,
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}
