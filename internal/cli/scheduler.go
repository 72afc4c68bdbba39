package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewSchedulerCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Drive the recurring call scheduler",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run-once",
		Short: "Execute every call that is due now and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withDeps(cmd, func(ctx context.Context, deps *Deps) error {
				summary, err := deps.Scheduler.RunOnce(ctx)
				if err != nil {
					return err
				}
				return root.write(cmd.OutOrStdout(), summary, func(w io.Writer) {
					if summary.Skipped {
						fmt.Fprintf(w, "run %s skipped: another replica holds the tick lock\n", summary.RunID)
						return
					}
					fmt.Fprintf(w, "run %s: due=%d succeeded=%d completed=%d failed=%d exhausted=%d conflicts=%d errors=%d\n",
						summary.RunID, summary.Due, summary.Succeeded, summary.Completed,
						summary.Failed, summary.Exhausted, summary.Conflicts, summary.Errors)
				})
			})
		},
	})
	return cmd
}
