package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/authflow/usecase"
	"github.com/spf13/cobra"
)

type authflow interface {
	RunAll(ctx context.Context, targets []entity.Target) ([]entity.RunRecord, error)
	PreviewCodes(secret string) (*usecase.CodeWindow, error)
	InspectSession(ctx context.Context, in usecase.InspectSessionInput) (*usecase.InspectSessionOutput, error)
	ListRuns(ctx context.Context, in usecase.ListRunsInput) ([]entity.RunRecord, error)
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate every configured target and store the sessions",
		Long: `Authenticate every configured target (or the ones named with --target).
A stored session is reused when it is still authenticated, unless
FORCE_LOGIN is set. Screenshots are written under OUT_DIR.

Exit status is 0 when every target authenticated, 1 when any failed and
2 on configuration errors.`,
		Args: cobra.NoArgs,
		RunE: c.runLogin,
	}
}

func (c *cli) runLogin(cmd *cobra.Command, _ []string) error {
	return c.withApp(func(a application) error {
		targets, err := c.selectTargets(a)
		if err != nil {
			return err
		}

		records, err := a.Authflow().RunAll(a.Context(), targets)
		printRecords(cmd.OutOrStdout(), records)
		return err
	})
}

// printRecords writes one row per run. Times are local.
func printRecords(w io.Writer, records []entity.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tOUTCOME\tROUNDS\tOTP\tDURATION\tSESSION\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.Target, r.Outcome, r.Rounds, r.OTPAttempts,
			formatDuration(r), dash(r.SessionHandle), dash(r.ErrorMessage))
	}
	_ = tw.Flush()
}

func formatDuration(r entity.RunRecord) string {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return "-"
	}
	return r.Duration().Round(100 * time.Millisecond).String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
