package entity

import "time"

// Target is one account on one site.
type Target struct {
	Name        string `validate:"required"`
	BaseURL     string `validate:"required,url"`
	Credentials Credentials
	TOTPSecret  string `validate:"required,totpsecret"`
}

// Outcome is the final result of a run as recorded in history.
type Outcome string

const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeFailed        Outcome = "failed"
	OutcomeSkipped       Outcome = "skipped"
)

// RunRecord summarizes one target run. It is written to history and
// published as an event.
type RunRecord struct {
	RunID         string    `json:"run_id"`
	Target        string    `json:"target"`
	BaseURL       string    `json:"base_url"`
	Outcome       Outcome   `json:"outcome"`
	Phase         string    `json:"phase"`
	Rounds        int       `json:"rounds"`
	OTPAttempts   int       `json:"otp_attempts"`
	Resleeps      int       `json:"resleeps"`
	ErrorCode     string    `json:"error_code,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	SessionHandle string    `json:"session_handle,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Screenshots   []string  `json:"screenshots,omitempty"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Cookie is a browser cookie captured with the session.
type Cookie struct {
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Domain   string     `json:"domain,omitempty"`
	Path     string     `json:"path,omitempty"`
	Expires  *time.Time `json:"expires,omitempty"`
	Secure   bool       `json:"secure,omitempty"`
	HTTPOnly bool       `json:"http_only,omitempty"`
}

// Origin holds the local storage entries of one origin.
type Origin struct {
	Origin       string            `json:"origin"`
	LocalStorage map[string]string `json:"local_storage,omitempty"`
}

// StoredSession is the captured authenticated browser state.
type StoredSession struct {
	Target     string    `json:"target"`
	URL        string    `json:"url"`
	CapturedAt time.Time `json:"captured_at"`
	Cookies    []Cookie  `json:"cookies"`
	Origins    []Origin  `json:"origins,omitempty"`
}
