package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shandysiswandi/authpilot/internal/authflow/usecase"
	"github.com/spf13/cobra"
)

const totpRefresh = 400 * time.Millisecond

func (c *cli) totpCmd() *cobra.Command {
	var (
		secret string
		once   bool
	)

	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Print the previous, current and next code of a TOTP secret",
		Long: `Print the codes for the previous, current and next time step and the
seconds left in the current one, refreshed until interrupted. Compare them
with an authenticator app to diagnose clock skew; TOTP_OFFSET_MS shifts
the local clock.

The secret is --secret when given, otherwise the one of the selected target.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(func(a application) error {
				if secret == "" {
					t, err := c.firstTarget(a)
					if err != nil {
						return err
					}
					secret = t.TOTPSecret
				}
				return watchCodes(a.Context(), cmd.OutOrStdout(), a.Authflow(), secret, once)
			})
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "base32 secret, spaces allowed")
	cmd.Flags().BoolVar(&once, "once", false, "print a single line and exit")
	return cmd
}

// watchCodes prints a line whenever the window or the seconds left change.
func watchCodes(ctx context.Context, w io.Writer, af authflow, secret string, once bool) error {
	ticker := time.NewTicker(totpRefresh)
	defer ticker.Stop()

	last := ""
	for {
		win, err := af.PreviewCodes(secret)
		if err != nil {
			return err
		}

		line := formatCodeWindow(win)
		if line != last {
			fmt.Fprintln(w, line)
			last = line
		}
		if once {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func formatCodeWindow(win *usecase.CodeWindow) string {
	secs := int(win.Remaining.Round(time.Second) / time.Second)
	return fmt.Sprintf("step %d  prev %s  now %s  next %s  %2ds left",
		win.Step, win.Previous, win.Current, win.Next, secs)
}
