// Package browser drives a Chrome page through WebDriver with agouti and
// exposes it as a usecase.Page.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sclevine/agouti"
	"github.com/shandysiswandi/authpilot/internal/authflow/usecase"
	"github.com/shandysiswandi/authpilot/internal/pkg/clock"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the Chrome driver and the pages it opens.
type Options struct {
	Headless    bool
	HumanDelays bool
	UserAgent   string
	// WindowSize is "width,height".
	WindowSize string
	Language   string
	// StartTimeout bounds how long chromedriver may take to come up.
	StartTimeout time.Duration
	// CommandTimeout bounds every WebDriver round-trip. It must exceed
	// PageLoadTimeout since navigation blocks until the page has loaded.
	CommandTimeout  time.Duration
	PageLoadTimeout time.Duration
	ScriptTimeout   time.Duration
	Selectors    Selectors
	Sleeper      clock.Sleeper
}

// Browser owns one chromedriver process. Pages are independent WebDriver
// sessions and may be used concurrently.
type Browser struct {
	driver *agouti.WebDriver
	match  *matcher
	opts   Options
}

func chromeArgs(opts Options) []string {
	args := []string{
		"--disable-dev-shm-usage",
		"--no-sandbox",
		"--window-size=" + opts.WindowSize,
		"--user-agent=" + opts.UserAgent,
		"--lang=" + opts.Language,
		"--disable-blink-features=AutomationControlled",
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	return args
}

func withDefaults(opts Options) Options {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.WindowSize == "" {
		opts.WindowSize = "1366,850"
	}
	if opts.Language == "" {
		opts.Language = "pt-BR"
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 10 * time.Second
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 30 * time.Second
	}
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = 15 * time.Second
	}
	if opts.CommandTimeout <= opts.PageLoadTimeout {
		opts.CommandTimeout = opts.PageLoadTimeout + 15*time.Second
	}
	if opts.Selectors.Username == nil {
		opts.Selectors = DefaultSelectors()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = clock.New()
	}
	return opts
}

// New starts chromedriver.
func New(opts Options) (*Browser, error) {
	opts = withDefaults(opts)

	m, err := newMatcher(opts.Selectors)
	if err != nil {
		return nil, fmt.Errorf("browser: invalid selectors: %w", err)
	}

	driver := agouti.ChromeDriver(
		agouti.ChromeOptions("args", chromeArgs(opts)),
		agouti.Timeout(int(opts.StartTimeout/time.Second)),
		agouti.HTTPClient(newHTTPClient(opts)),
	)
	if err := driver.Start(); err != nil {
		return nil, fmt.Errorf("browser: start chromedriver: %w", err)
	}

	return &Browser{driver: driver, match: m, opts: opts}, nil
}

// NewPage opens a fresh browser session.
func (b *Browser) NewPage(ctx context.Context) (usecase.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := b.driver.NewPage(agouti.Browser("chrome"))
	if err != nil {
		return nil, fmt.Errorf("browser: new page: %w", err)
	}

	return newPage(page, b.opts, b.match)
}

func newHTTPClient(opts Options) *http.Client {
	return &http.Client{Timeout: opts.CommandTimeout}
}

// newPage applies the page load and script timeouts to a fresh session.
func newPage(page *agouti.Page, opts Options, m *matcher) (*Page, error) {
	if err := page.SetPageLoad(int(opts.PageLoadTimeout / time.Millisecond)); err != nil {
		_ = page.Destroy()
		return nil, fmt.Errorf("browser: page load timeout: %w", err)
	}
	if err := page.SetScriptTimeout(int(opts.ScriptTimeout / time.Millisecond)); err != nil {
		_ = page.Destroy()
		return nil, fmt.Errorf("browser: script timeout: %w", err)
	}

	return &Page{
		page:  page,
		sel:   opts.Selectors,
		match: m,
		human: humanizer{enabled: opts.HumanDelays, sleeper: opts.Sleeper},
	}, nil
}

// Close stops chromedriver and every page still open.
func (b *Browser) Close() error {
	return b.driver.Stop()
}
