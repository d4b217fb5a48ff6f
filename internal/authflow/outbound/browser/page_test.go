package browser

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sclevine/agouti"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStalledWebDriver serves session creation and timeout settings, then
// never answers any other command.
func newStalledWebDriver(t *testing.T) string {
	t.Helper()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/session":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"sessionId":"s1","status":0,"value":{}}`)
		case strings.HasSuffix(r.URL.Path, "/timeouts"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"sessionId":"s1","status":0,"value":null}`)
		default:
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	return srv.URL
}

func newStalledPage(t *testing.T) *Page {
	t.Helper()

	opts := withDefaults(Options{
		PageLoadTimeout: 100 * time.Millisecond,
		ScriptTimeout:   100 * time.Millisecond,
		CommandTimeout:  300 * time.Millisecond,
	})
	m, err := newMatcher(opts.Selectors)
	require.NoError(t, err)

	ap, err := agouti.NewPage(newStalledWebDriver(t), agouti.HTTPClient(newHTTPClient(opts)))
	require.NoError(t, err)

	page, err := newPage(ap, opts, m)
	require.NoError(t, err)
	return page
}

func TestPage_StalledWebDriver(t *testing.T) {
	t.Run("ProbeReturnsWithinCommandTimeout", func(t *testing.T) {
		// Arrange
		page := newStalledPage(t)
		start := time.Now()

		// Act
		_, err := page.HasLoginForm(context.Background())

		// Assert
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("NavigateReturnsWithinCommandTimeout", func(t *testing.T) {
		// Arrange
		page := newStalledPage(t)
		start := time.Now()

		// Act
		err := page.Navigate(context.Background(), "https://eproc.example.test/login")

		// Assert
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("CanceledContextSkipsWebDriver", func(t *testing.T) {
		// Arrange
		page := newStalledPage(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Act
		_, err := page.HasOTPField(ctx)

		// Assert
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWithDefaults_CommandTimeoutExceedsPageLoad(t *testing.T) {
	opts := withDefaults(Options{PageLoadTimeout: 40 * time.Second, CommandTimeout: 10 * time.Second})

	assert.Equal(t, 55*time.Second, opts.CommandTimeout)
	assert.Equal(t, 15*time.Second, opts.ScriptTimeout)
}
