package usecase

import (
	"time"

	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"github.com/shandysiswandi/authpilot/internal/pkg/otp"
)

// CodeWindow is the code of the current step and its two neighbours.
type CodeWindow struct {
	Step      int64
	Previous  string
	Current   string
	Next      string
	Remaining time.Duration
}

// PreviewCodes computes the codes a verifier with one step of tolerance
// would accept right now. It is used to compare against an authenticator
// app when diagnosing clock skew.
func (s *Usecase) PreviewCodes(secret string) (*CodeWindow, error) {
	secret = otp.NormalizeSecret(secret)

	codes := make([]string, 0, 3)
	for _, delta := range []int64{-1, 0, 1} {
		code, err := s.totp.GenerateCode(secret, s.steps.EpochForStep(delta))
		if err != nil {
			return nil, goerror.NewInvalidConfig(nil, "totp_secret", err.Error())
		}
		codes = append(codes, code)
	}

	return &CodeWindow{
		Step:      s.steps.CurrentStep(),
		Previous:  codes[0],
		Current:   codes[1],
		Next:      codes[2],
		Remaining: s.steps.Remaining() - otp.StepGuard,
	}, nil
}
