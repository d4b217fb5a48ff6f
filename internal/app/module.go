package app

import (
	"github.com/shandysiswandi/authpilot/internal/authflow"
)

func (a *App) initModules() error {
	uc, err := authflow.New(authflow.Dependency{
		Ctx:         a.ctx,
		DBConn:      a.dbConn,
		Locker:      a.locker,
		Messaging:   a.messaging,
		Sealer:      a.sealer,
		Sessions:    a.sessions,
		Screenshots: a.screenshots,
		Browser:     a.browser,
		Instrument:  a.ins,
		UUID:        a.uuid,
		Clock:       a.clock,
		Totp:        a.totp,
		Validator:   a.validator,
		TOTPConfig:  a.totpConfig,
		Policy:      a.policy,
		Concurrency: a.config.GetInt("auth.concurrency"),
		ForceLogin:  a.config.GetBool("auth.force_login"),
		LockTTL:     a.config.GetSecond("auth.lock_ttl_seconds"),
	})
	if err != nil {
		return invalidConfig(err)
	}

	a.authflow = uc
	return nil
}
