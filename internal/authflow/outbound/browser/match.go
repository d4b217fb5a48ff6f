package browser

import (
	"regexp"
	"strings"
)

// Selectors describes how the login, second-factor and error states look on
// the target site. CSS lists are tried in order; label patterns are
// JavaScript-compatible regular expression sources matched case-insensitively.
type Selectors struct {
	UsernameLabel string
	PasswordLabel string
	Username      []string
	Password      []string
	OTPPreferred  string
	OTP           []string

	LoginButton  string
	SubmitButton string

	ErrorText       []string
	InvalidCodeText []string
}

// DefaultSelectors matches the eproc login flow: Portuguese labels, an
// optional #otp field and a cookie error page.
func DefaultSelectors() Selectors {
	return Selectors{
		UsernameLabel: `usu[aá]rio`,
		PasswordLabel: `senha`,
		Username: []string{
			`input[name="username"]:not([type="hidden"])`,
			`#username`,
			`input[autocomplete="username"]`,
			`input[aria-label*="usu" i]`,
			`input[placeholder*="usu" i]`,
			`input[type="text"]`,
		},
		Password: []string{
			`input[type="password"]:not([autocomplete="one-time-code"])`,
			`input[name="password"]:not([autocomplete="one-time-code"])`,
			`input[autocomplete="current-password"]`,
			`input[aria-label*="senh" i]`,
			`input[placeholder*="senh" i]`,
		},
		OTPPreferred: `#otp`,
		OTP: []string{
			`input[name*="otp" i]`,
			`input[name*="totp" i]`,
			`input[name*="token" i]`,
			`input[autocomplete="one-time-code"]`,
			`input[type="tel"]`,
		},
		LoginButton:  `entrar|acessar|login|continuar`,
		SubmitButton: `entrar|confirmar|continuar|verificar|submit`,
		ErrorText: []string{
			`cookie.*not.*found`,
			`sentimos.*muito`,
			`make.*sure.*cookies.*enabled`,
			`acesso.*negado`,
			`access.*denied`,
		},
		InvalidCodeText: []string{
			`c[oó]digo.*inv[aá]lido`,
			`invalid.*code`,
		},
	}
}

// matcher holds the compiled text patterns of a Selectors.
type matcher struct {
	usernameLabel *regexp.Regexp
	passwordLabel *regexp.Regexp
	errorText     []*regexp.Regexp
	invalidCode   []*regexp.Regexp
}

func compile(src string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + src)
}

func compileAll(srcs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(srcs))
	for _, src := range srcs {
		re, err := compile(src)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func newMatcher(sel Selectors) (*matcher, error) {
	var (
		m   matcher
		err error
	)
	if m.usernameLabel, err = compile(sel.UsernameLabel); err != nil {
		return nil, err
	}
	if m.passwordLabel, err = compile(sel.PasswordLabel); err != nil {
		return nil, err
	}
	if m.errorText, err = compileAll(sel.ErrorText); err != nil {
		return nil, err
	}
	if m.invalidCode, err = compileAll(sel.InvalidCodeText); err != nil {
		return nil, err
	}
	return &m, nil
}

// frameSnapshot is what snapshotScript reports about one document.
type frameSnapshot struct {
	Username bool     `json:"username"`
	Password bool     `json:"password"`
	OTP      bool     `json:"otp"`
	Labels   []string `json:"labels"`
	Text     string   `json:"text"`
}

// loginForm reports a visible username and password pair, or a visible
// label naming either of them.
func (m *matcher) loginForm(s frameSnapshot) bool {
	if s.Username && s.Password {
		return true
	}
	for _, l := range s.Labels {
		if m.usernameLabel.MatchString(l) || m.passwordLabel.MatchString(l) {
			return true
		}
	}
	return false
}

func (m *matcher) errorPage(s frameSnapshot) bool {
	return anyMatch(m.errorText, s.Text)
}

func (m *matcher) invalidCodeMessage(s frameSnapshot) bool {
	return anyMatch(m.invalidCode, s.Text)
}

// anyMatch checks text line by line so ".*" never spans unrelated blocks.
func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, line := range strings.Split(text, "\n") {
		for _, re := range res {
			if re.MatchString(line) {
				return true
			}
		}
	}
	return false
}
