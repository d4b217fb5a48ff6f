package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shandysiswandi/authpilot/internal/authflow/usecase"
	"github.com/spf13/cobra"
)

func (c *cli) sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Work with stored sessions",
	}
	cmd.AddCommand(c.sessionInspectCmd())
	return cmd
}

func (c *cli) sessionInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [handle]",
		Short: "Summarize a stored session without printing cookie values",
		Long: `Load the session stored for the selected target, unsealing it with
SESSION_SEAL_KEY when needed, and list its cookies by name, domain and
expiry. The handle defaults to <target>/auth-state.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a application) error {
				t, err := c.firstTarget(a)
				if err != nil {
					return err
				}

				in := usecase.InspectSessionInput{Target: t.Name}
				if len(args) == 1 {
					in.Handle = args[0]
				}

				out, err := a.Authflow().InspectSession(a.Context(), in)
				if err != nil {
					return err
				}
				printSession(cmd.OutOrStdout(), out, time.Now())
				return nil
			})
		},
	}
}

func printSession(w io.Writer, out *usecase.InspectSessionOutput, now time.Time) {
	fmt.Fprintf(w, "target:   %s\n", out.Target)
	fmt.Fprintf(w, "url:      %s\n", dash(out.URL))
	if !out.CapturedAt.IsZero() {
		fmt.Fprintf(w, "captured: %s (%s ago)\n", out.CapturedAt.Format(time.RFC3339), now.Sub(out.CapturedAt).Round(time.Second))
	}
	fmt.Fprintf(w, "origins:  %d\n\n", out.Origins)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDOMAIN\tEXPIRES\tFLAGS")
	for _, ck := range out.Cookies {
		expires := "session"
		if ck.Expires != nil {
			expires = ck.Expires.Format(time.RFC3339)
		}
		if ck.Expired {
			expires += " (expired)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ck.Name, ck.Domain, expires, cookieFlags(ck))
	}
	_ = tw.Flush()
}

func cookieFlags(ck usecase.CookieSummary) string {
	flags := ""
	if ck.Secure {
		flags += "secure "
	}
	if ck.HTTPOnly {
		flags += "httponly"
	}
	return dash(flags)
}
