package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/authflow/usecase"
	"github.com/shandysiswandi/authpilot/internal/pkg/uid"
	"github.com/spf13/cobra"
)

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Long: `List runs recorded in DATABASE_URL, newest first, optionally only those
of the first --target. The list is empty when no database is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(func(a application) error {
				in := usecase.ListRunsInput{Limit: limit}
				if len(c.flags.targets) > 0 {
					in.Target = c.flags.targets[0]
				}

				runs, err := a.Authflow().ListRuns(a.Context(), in)
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	return cmd
}

func printHistory(w io.Writer, runs []entity.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tTARGET\tOUTCOME\tPHASE\tROUNDS\tOTP\tRESLEEPS\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			startedAt(r), r.RunID, r.Target, r.Outcome, dash(r.Phase),
			r.Rounds, r.OTPAttempts, r.Resleeps, formatDuration(r), dash(r.ErrorCode))
	}
	_ = tw.Flush()
}

// startedAt falls back to the time encoded in the run id for records that
// never started.
func startedAt(r entity.RunRecord) string {
	ts := r.StartedAt
	if ts.IsZero() {
		var ok bool
		if ts, ok = uid.Time(r.RunID); !ok {
			return "-"
		}
	}
	return ts.Local().Format(time.DateTime)
}
