package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sclevine/agouti"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
)

const (
	markField  = "field"
	markSubmit = "submit"

	keyEnter = "\ue007"

	settlePoll = 250 * time.Millisecond
)

var errNotSettled = errors.New("document still loading")

// Page is one WebDriver session. It is not safe for concurrent use.
type Page struct {
	page  *agouti.Page
	sel   Selectors
	match *matcher
	human humanizer

	// frame is the scope of the last filled field, 0 being the root document.
	frame int
	// otpFilled selects the second-factor submit button over the login one.
	otpFilled bool
}

func (p *Page) frameCount() (int, error) {
	if err := p.page.SwitchToRootFrame(); err != nil {
		return 0, err
	}
	n, err := p.page.All("iframe").Count()
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

func (p *Page) enter(scope int) error {
	if err := p.page.SwitchToRootFrame(); err != nil {
		return err
	}
	if scope == 0 {
		return nil
	}
	return p.page.All("iframe").At(scope - 1).SwitchToFrame()
}

// snapshots inspects the root document and every iframe. Frames that cannot
// be entered are skipped.
func (p *Page) snapshots(ctx context.Context) ([]frameSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := p.frameCount()
	if err != nil {
		return nil, fmt.Errorf("browser: list frames: %w", err)
	}
	defer func() { _ = p.page.SwitchToRootFrame() }()

	args := map[string]any{
		"username": p.sel.Username,
		"password": p.sel.Password,
		"otp":      p.otpSelectors(),
	}

	out := make([]frameSnapshot, 0, n)
	for scope := range n {
		if err := p.enter(scope); err != nil {
			slog.DebugContext(ctx, "skipping frame", "frame", scope, "error", err)
			continue
		}
		var snap frameSnapshot
		if err := p.page.RunScript(snapshotScript, args, &snap); err != nil {
			if scope == 0 {
				return nil, fmt.Errorf("browser: inspect document: %w", err)
			}
			slog.DebugContext(ctx, "skipping frame", "frame", scope, "error", err)
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (p *Page) anySnapshot(ctx context.Context, pred func(frameSnapshot) bool) (bool, error) {
	snaps, err := p.snapshots(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range snaps {
		if pred(s) {
			return true, nil
		}
	}
	return false, nil
}

// HasLoginForm reports a visible username and password pair in any frame.
func (p *Page) HasLoginForm(ctx context.Context) (bool, error) {
	return p.anySnapshot(ctx, p.match.loginForm)
}

// HasOTPField reports a visible one-time code field in any frame.
func (p *Page) HasOTPField(ctx context.Context) (bool, error) {
	return p.anySnapshot(ctx, func(s frameSnapshot) bool { return s.OTP })
}

// HasErrorIndicator reports an explicit denial or error message.
func (p *Page) HasErrorIndicator(ctx context.Context) (bool, error) {
	return p.anySnapshot(ctx, p.match.errorPage)
}

// HasInvalidCodeMessage reports the site's rejected-code message.
func (p *Page) HasInvalidCodeMessage(ctx context.Context) (bool, error) {
	return p.anySnapshot(ctx, p.match.invalidCodeMessage)
}

func (p *Page) otpSelectors() []string {
	if p.sel.OTPPreferred == "" {
		return p.sel.OTP
	}
	return append([]string{p.sel.OTPPreferred}, p.sel.OTP...)
}

// fill finds the first visible field in any frame and types value into it.
func (p *Page) fill(ctx context.Context, field, label string, selectors []string, value string) error {
	n, err := p.frameCount()
	if err != nil {
		return goerror.NewActionTimeout(field+" lookup", err)
	}
	defer func() { _ = p.page.SwitchToRootFrame() }()

	args := map[string]any{"mark": markField, "label": label, "selectors": selectors}
	for scope := range n {
		if err := p.enter(scope); err != nil {
			continue
		}
		var found bool
		if err := p.page.RunScript(markFieldScript, args, &found); err != nil || !found {
			continue
		}

		p.frame = scope
		if err := p.human.pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
			return err
		}
		el := p.page.First(fmt.Sprintf(`[data-authpilot=%q]`, markField))
		if err := p.human.typeInto(ctx, el, value); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return goerror.NewActionTimeout(field+" input", err)
		}
		return nil
	}

	return goerror.NewFieldNotFound(field)
}

// FillUsername types the username into the first matching field.
func (p *Page) FillUsername(ctx context.Context, value string) error {
	p.otpFilled = false
	return p.fill(ctx, "username", p.sel.UsernameLabel, p.sel.Username, value)
}

// FillPassword types the password into the first matching field.
func (p *Page) FillPassword(ctx context.Context, value string) error {
	p.otpFilled = false
	return p.fill(ctx, "password", p.sel.PasswordLabel, p.sel.Password, value)
}

// FillOTP types code into the one-time code field and makes Submit pick
// the second-factor button.
func (p *Page) FillOTP(ctx context.Context, code string) error {
	p.otpFilled = true
	return p.fill(ctx, "otp", "", p.otpSelectors(), code)
}

// Submit clicks the matching button in the frame of the last filled field,
// or presses Enter in that field when there is none.
func (p *Page) Submit(ctx context.Context) error {
	if err := p.human.pause(ctx, 800*time.Millisecond, 1500*time.Millisecond); err != nil {
		return err
	}
	if err := p.enter(p.frame); err != nil {
		return goerror.NewActionTimeout("submit", err)
	}
	defer func() { _ = p.page.SwitchToRootFrame() }()

	name := p.sel.LoginButton
	if p.otpFilled {
		name = p.sel.SubmitButton
	}

	var found bool
	if err := p.page.RunScript(markButtonScript, map[string]any{"mark": markSubmit, "name": name}, &found); err != nil {
		return goerror.NewActionTimeout("submit", err)
	}

	if found {
		if err := p.page.First(fmt.Sprintf(`[data-authpilot=%q]`, markSubmit)).Click(); err != nil {
			return goerror.NewActionTimeout("submit click", err)
		}
		return nil
	}

	slog.DebugContext(ctx, "no submit button found, pressing enter")
	if err := p.page.First(fmt.Sprintf(`[data-authpilot=%q]`, markField)).SendKeys(keyEnter); err != nil {
		return goerror.NewActionTimeout("submit enter", err)
	}
	return nil
}

// WaitSettled polls document.readyState until it is complete or timeout
// passes.
func (p *Page) WaitSettled(ctx context.Context, timeout time.Duration) error {
	if err := p.page.SwitchToRootFrame(); err != nil {
		return goerror.NewActionTimeout("settle", err)
	}

	b := retry.WithMaxDuration(timeout, retry.NewConstant(settlePoll))
	err := retry.Do(ctx, b, func(context.Context) error {
		var state string
		if err := p.page.RunScript(readyStateScript, nil, &state); err != nil {
			return retry.RetryableError(err)
		}
		if state != "complete" {
			return retry.RetryableError(errNotSettled)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return goerror.NewActionTimeout("settle", err)
	}

	return p.human.pause(ctx, 2*time.Second, 3*time.Second)
}

// Navigate loads url in the root frame.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate: %w", err)
	}
	p.frame = 0
	return p.human.pause(ctx, 2*time.Second, 3*time.Second)
}

// RestoreSession loads local storage per origin, then sets cookies on the
// stored URL. Cookies the browser refuses are skipped.
func (p *Page) RestoreSession(ctx context.Context, st *entity.StoredSession) error {
	for _, o := range st.Origins {
		if len(o.LocalStorage) == 0 || o.Origin == "" {
			continue
		}
		if err := p.page.Navigate(o.Origin); err != nil {
			return fmt.Errorf("browser: navigate: %w", err)
		}
		var n int
		if err := p.page.RunScript(restoreLocalStorageScript, map[string]any{"items": o.LocalStorage}, &n); err != nil {
			slog.WarnContext(ctx, "failed to restore local storage", "origin", o.Origin, "error", err)
		}
	}

	if st.URL == "" {
		return nil
	}
	if err := p.page.Navigate(st.URL); err != nil {
		return fmt.Errorf("browser: navigate: %w", err)
	}

	skipped := 0
	for _, c := range st.Cookies {
		if err := p.page.SetCookie(toHTTPCookie(c)); err != nil {
			skipped++
		}
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "some cookies were not restored", "skipped", skipped, "total", len(st.Cookies))
	}
	return nil
}

type localStorageDump struct {
	Origin string            `json:"origin"`
	Items  map[string]string `json:"items"`
}

// CaptureSession reads cookies and the current origin's local storage.
func (p *Page) CaptureSession(ctx context.Context) (*entity.StoredSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.page.SwitchToRootFrame(); err != nil {
		return nil, fmt.Errorf("browser: root frame: %w", err)
	}

	url, err := p.page.URL()
	if err != nil {
		return nil, fmt.Errorf("browser: read url: %w", err)
	}

	cookies, err := p.page.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("browser: read cookies: %w", err)
	}

	st := &entity.StoredSession{URL: url, Cookies: make([]entity.Cookie, 0, len(cookies))}
	for _, c := range cookies {
		st.Cookies = append(st.Cookies, fromHTTPCookie(c))
	}

	var dump localStorageDump
	if err := p.page.RunScript(localStorageScript, nil, &dump); err != nil {
		slog.WarnContext(ctx, "failed to read local storage", "error", err)
	} else if dump.Origin != "" {
		st.Origins = append(st.Origins, entity.Origin{Origin: dump.Origin, LocalStorage: dump.Items})
	}

	return st, nil
}

// Screenshot returns a PNG of the viewport.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	png, err := p.page.Session().GetScreenshot()
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return png, nil
}

// Close ends the WebDriver session.
func (p *Page) Close() error {
	return p.page.Destroy()
}

func toHTTPCookie(c entity.Cookie) *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if c.Expires != nil {
		hc.Expires = *c.Expires
	}
	return hc
}

func fromHTTPCookie(c *http.Cookie) entity.Cookie {
	out := entity.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
	}
	if !c.Expires.IsZero() {
		exp := c.Expires.UTC()
		out.Expires = &exp
	}
	return out
}
