package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/config"
	"github.com/shandysiswandi/authpilot/internal/pkg/otp"
)

type targetConfig struct {
	Name       string `mapstructure:"name"`
	BaseURL    string `mapstructure:"base_url"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	TOTPSecret string `mapstructure:"totp_secret"`
}

func (t targetConfig) entity() entity.Target {
	return entity.Target{
		Name:    strings.TrimSpace(t.Name),
		BaseURL: strings.TrimSpace(t.BaseURL),
		Credentials: entity.Credentials{
			Username: os.ExpandEnv(t.Username),
			Password: os.ExpandEnv(t.Password),
		},
		TOTPSecret: otp.NormalizeSecret(os.ExpandEnv(t.TOTPSecret)),
	}
}

// loadTargets reads the "targets" list when present, otherwise the single
// target built from BASE_URL, EPROC_USERNAME, EPROC_PASSWORD and
// TOTP_SECRET. Values of a list entry may reference the environment as
// ${NAME}. A missing single target yields no targets.
func loadTargets(cfg config.Config) ([]entity.Target, error) {
	if cfg.IsSet("targets") {
		var list []targetConfig
		if err := cfg.UnmarshalKey("targets", &list); err != nil {
			return nil, fmt.Errorf("targets: %w", err)
		}

		seen := make(map[string]bool, len(list))
		out := make([]entity.Target, 0, len(list))
		for i, t := range list {
			if strings.TrimSpace(t.Name) == "" {
				t.Name = fmt.Sprintf("target-%d", i+1)
			}
			target := t.entity()
			if seen[target.Name] {
				return nil, fmt.Errorf("targets: duplicate name %q", target.Name)
			}
			seen[target.Name] = true
			out = append(out, target)
		}
		return out, nil
	}

	single := targetConfig{
		Name:       cfg.GetString("target.name"),
		BaseURL:    cfg.GetString("target.base_url"),
		Username:   cfg.GetString("target.username"),
		Password:   cfg.GetString("target.password"),
		TOTPSecret: cfg.GetString("target.totp_secret"),
	}
	if single.BaseURL == "" && single.Username == "" && single.TOTPSecret == "" {
		return nil, nil
	}
	return []entity.Target{single.entity()}, nil
}

func loadPolicy(cfg config.Config) (entity.Policy, error) {
	skew, err := entity.ParseSkewStrategy(cfg.GetString("auth.skew_strategy"))
	if err != nil {
		return entity.Policy{}, err
	}

	return entity.Policy{
		MaxRounds:        cfg.GetInt("auth.max_rounds"),
		MaxOTPTries:      cfg.GetInt("auth.otp_tries"),
		CredentialSettle: cfg.GetMillisecond("auth.credential_settle_ms"),
		OTPSettle:        cfg.GetMillisecond("auth.otp_settle_ms"),
		RecheckDelay:     cfg.GetMillisecond("auth.recheck_delay_ms"),
		RoundDelay:       cfg.GetMillisecond("auth.round_delay_ms"),
		Skew:             skew,
		SkewSteps:        cfg.GetInt("auth.skew_steps"),
	}, nil
}

func loadTOTPConfig(cfg config.Config) otp.Config {
	return otp.Config{
		Period: cfg.GetUint("totp.period"),
		Digits: cfg.GetInt("totp.digits"),
		Offset: cfg.GetMillisecond("totp.offset_ms"),
	}
}
