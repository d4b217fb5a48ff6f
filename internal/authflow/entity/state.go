package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionState is what the live page currently asks of the user.
type SessionState int8

const (
	// SessionStateUnknown is returned only alongside a probe error.
	SessionStateUnknown SessionState = 0

	// SessionStateNeedsLogin mean a username/password form is showing.
	SessionStateNeedsLogin SessionState = 1

	// SessionStateNeedsSecondFactor mean a one-time code field is showing.
	SessionStateNeedsSecondFactor SessionState = 2

	// SessionStateAuthenticated mean neither form nor error is showing.
	SessionStateAuthenticated SessionState = 3

	// SessionStateErrorPage mean the site shows an explicit denial or error.
	SessionStateErrorPage SessionState = 4
)

func (s SessionState) String() string {
	switch s {
	case SessionStateNeedsLogin:
		return "NeedsLogin"
	case SessionStateNeedsSecondFactor:
		return "NeedsSecondFactor"
	case SessionStateAuthenticated:
		return "Authenticated"
	case SessionStateErrorPage:
		return "ErrorPage"
	default:
		return "Unknown"
	}
}

// Phase is where an authentication run stands.
type Phase int8

const (
	// PhaseStart is before the first classification.
	PhaseStart Phase = 0

	// PhaseSubmittingCredentials mean username and password are being typed.
	PhaseSubmittingCredentials Phase = 1

	// PhaseAwaitingSecondFactor mean the second-factor loop is running.
	PhaseAwaitingSecondFactor Phase = 2

	// PhaseAuthenticated mean the session was reached and persisted.
	PhaseAuthenticated Phase = 3

	// PhaseFailed mean the run stopped without a session.
	PhaseFailed Phase = 4
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmittingCredentials:
		return "SubmittingCredentials"
	case PhaseAwaitingSecondFactor:
		return "AwaitingSecondFactor"
	case PhaseAuthenticated:
		return "Authenticated"
	case PhaseFailed:
		return "Failed"
	default:
		return "Start"
	}
}

// IsTerminal reports whether no further transition is possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseAuthenticated || p == PhaseFailed
}

// AuthSession is the working state of one Authenticate call. It is owned by
// that call and discarded when it returns.
type AuthSession struct {
	Round int
	// OTPAttempt counts attempts across every round. Each round has its own
	// MaxOTPTries budget.
	OTPAttempt int
	Resleeps   int
	LastState  SessionState
	Phase      Phase
}

// SkewStrategy decides how many codes one second-factor attempt submits.
type SkewStrategy string

const (
	// SkewStrategyCurrent submits the current step's code only.
	SkewStrategyCurrent SkewStrategy = "current"
	// SkewStrategyWindow submits codes for steps 0, -1, +1, ... up to SkewSteps.
	SkewStrategyWindow SkewStrategy = "window"
)

// ErrUnknownSkewStrategy is returned by ParseSkewStrategy.
var ErrUnknownSkewStrategy = errors.New("unknown skew strategy")

// ParseSkewStrategy parses s case-insensitively. Empty means current.
func ParseSkewStrategy(s string) (SkewStrategy, error) {
	switch SkewStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case SkewStrategyCurrent, "":
		return SkewStrategyCurrent, nil
	case SkewStrategyWindow:
		return SkewStrategyWindow, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSkewStrategy, s)
	}
}

// Policy bounds an authentication run.
type Policy struct {
	MaxRounds        int           `validate:"gte=1,lte=10"`
	MaxOTPTries      int           `validate:"gte=1,lte=10"`
	CredentialSettle time.Duration `validate:"gt=0"`
	OTPSettle        time.Duration `validate:"gt=0"`
	RecheckDelay     time.Duration `validate:"gte=0"`
	RoundDelay       time.Duration `validate:"gte=0"`
	Skew             SkewStrategy  `validate:"oneof=current window"`
	SkewSteps        int           `validate:"gte=0,lte=5"`
}

// DefaultPolicy mirrors the timings the login flow was tuned with.
func DefaultPolicy() Policy {
	return Policy{
		MaxRounds:        3,
		MaxOTPTries:      4,
		CredentialSettle: 20 * time.Second,
		OTPSettle:        12 * time.Second,
		RecheckDelay:     2 * time.Second,
		RoundDelay:       2 * time.Second,
		Skew:             SkewStrategyCurrent,
		SkewSteps:        1,
	}
}

// SkewDeltas returns the step offsets one attempt submits, in order.
func (p Policy) SkewDeltas() []int64 {
	if p.Skew != SkewStrategyWindow || p.SkewSteps <= 0 {
		return []int64{0}
	}
	deltas := make([]int64, 0, 2*p.SkewSteps+1)
	deltas = append(deltas, 0)
	for i := 1; i <= p.SkewSteps; i++ {
		deltas = append(deltas, -int64(i), int64(i))
	}
	return deltas
}

// Credentials are the first-factor inputs.
type Credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}
