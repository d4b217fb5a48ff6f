package app

// defaults are the lowest-priority configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.tz": "",

		"target.name": "default",

		"totp.period":    30,
		"totp.digits":    6,
		"totp.offset_ms": 0,

		"auth.max_rounds":           3,
		"auth.otp_tries":            4,
		"auth.skew_strategy":        "current",
		"auth.skew_steps":           1,
		"auth.credential_settle_ms": 20000,
		"auth.otp_settle_ms":        12000,
		"auth.recheck_delay_ms":     2000,
		"auth.round_delay_ms":       2000,
		"auth.concurrency":          1,
		"auth.force_login":          false,
		"auth.lock_ttl_seconds":     300,

		"browser.headless":                  true,
		"browser.human_delays":              true,
		"browser.window_size":               "1366,850",
		"browser.language":                  "pt-BR",
		"browser.start_timeout_seconds":     10,
		"browser.command_timeout_seconds":   45,
		"browser.page_load_timeout_seconds": 30,
		"browser.script_timeout_seconds":    15,

		"storage.driver":    "local",
		"storage.local.dir": "auth",
		"screenshots.dir":   "out",

		"database.pool.max_conns":                   4,
		"database.pool.min_conns":                   0,
		"database.pool.max_conn_lifetime_seconds":   1800,
		"database.pool.max_conn_idle_seconds":       300,
		"database.pool.health_check_period_seconds": 60,

		"messaging.driver":                      "none",
		"messaging.nats.name":                   "authpilot",
		"messaging.nats.max_reconnects":         5,
		"messaging.nats.timeout_seconds":        5,
		"messaging.nats.reconnect_wait_seconds": 2,
		"messaging.kafka.write_timeout_seconds": 10,

		"instrument.enabled":                 false,
		"instrument.service_name":            "authpilot",
		"instrument.service_version":         "dev",
		"instrument.env":                     "local",
		"instrument.otlp_secure":             false,
		"instrument.trace_sample_ratio":      1.0,
		"instrument.metric_interval_seconds": 15,
		"instrument.log_level":               "info",
		"instrument.log_format":              "json",
	}
}

// envAliases binds keys to the environment names operators already use.
func envAliases() map[string][]string {
	return map[string][]string{
		"target.base_url":    {"BASE_URL"},
		"target.username":    {"EPROC_USERNAME"},
		"target.password":    {"EPROC_PASSWORD"},
		"target.totp_secret": {"TOTP_SECRET"},

		"totp.period":    {"TOTP_PERIOD"},
		"totp.digits":    {"TOTP_DIGITS"},
		"totp.offset_ms": {"TOTP_OFFSET_MS"},

		"auth.max_rounds":    {"AUTH_MAX_ROUNDS"},
		"auth.otp_tries":     {"TOTP_TRIES"},
		"auth.skew_strategy": {"TOTP_SKEW_STRATEGY"},
		"auth.skew_steps":    {"TOTP_SKEW_STEPS"},
		"auth.concurrency":   {"AUTH_CONCURRENCY"},
		"auth.force_login":   {"FORCE_LOGIN"},

		"browser.headless":     {"HEADLESS"},
		"browser.human_delays": {"HUMAN_DELAYS"},

		"storage.driver":    {"STORAGE_DRIVER"},
		"storage.local.dir": {"AUTH_DIR"},
		"screenshots.dir":   {"OUT_DIR"},
		"seal.key":          {"SESSION_SEAL_KEY"},

		"redis.url":    {"REDIS_URL"},
		"database.url": {"DATABASE_URL"},

		"messaging.driver":        {"MESSAGING_DRIVER"},
		"messaging.nats.url":      {"NATS_URL"},
		"messaging.kafka.brokers": {"KAFKA_BROKERS"},

		"instrument.enabled":       {"OTEL_ENABLED"},
		"instrument.otlp_endpoint": {"OTEL_EXPORTER_OTLP_ENDPOINT"},
		"instrument.service_name":  {"OTEL_SERVICE_NAME"},
		"instrument.log_level":     {"LOG_LEVEL"},
		"instrument.log_format":    {"LOG_FORMAT"},
	}
}
