package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/recurring/domain"
	"github.com/spf13/cobra"
)

func NewRecurringCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Inspect and manage recurring calls",
	}
	cmd.AddCommand(newRecurringGetCommand(root))
	cmd.AddCommand(newRecurringCancelCommand(root))
	cmd.AddCommand(newRecurringReactivateCommand(root))
	return cmd
}

func newRecurringGetCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a recurring call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.ParseString(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return root.withDeps(cmd, func(ctx context.Context, deps *Deps) error {
				call, err := deps.Recurring.Get(ctx, id)
				if err != nil {
					return err
				}
				return root.write(cmd.OutOrStdout(), call, func(w io.Writer) { printCall(w, call) })
			})
		},
	}
}

func newRecurringCancelCommand(root *RootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Deactivate a recurring call on behalf of its owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.ParseString(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return root.withDeps(cmd, func(ctx context.Context, deps *Deps) error {
				call, err := deps.Recurring.Cancel(ctx, id, owner)
				if err != nil {
					return err
				}
				return root.write(cmd.OutOrStdout(), call, func(w io.Writer) { printCall(w, call) })
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner the call belongs to")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newRecurringReactivateCommand(root *RootOptions) *cobra.Command {
	var (
		retries  int
		nextCall string
	)

	cmd := &cobra.Command{
		Use:   "reactivate <id>",
		Short: "Re-arm an inactive recurring call",
		Long: `Re-arm an inactive recurring call with a fresh retry budget.

Example:
  followupctl recurring reactivate 1790012345678901248 --retries 5 --next-call 2026-11-01T09:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.ParseString(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			req := domain.ReactivateRequest{ID: id, Retries: retries}
			if nextCall != "" {
				at, err := time.Parse(time.RFC3339, nextCall)
				if err != nil {
					return fmt.Errorf("invalid --next-call: %w", err)
				}
				req.NextCall = &at
			}
			return root.withDeps(cmd, func(ctx context.Context, deps *Deps) error {
				call, err := deps.Recurring.Reactivate(ctx, req)
				if err != nil {
					return err
				}
				return root.write(cmd.OutOrStdout(), call, func(w io.Writer) { printCall(w, call) })
			})
		},
	}

	cmd.Flags().IntVar(&retries, "retries", domain.DefaultRetries, "retry budget to restore")
	cmd.Flags().StringVar(&nextCall, "next-call", "", "first call time (RFC3339), defaults to now")
	return cmd
}

func printCall(w io.Writer, call *domain.RecurringCall) {
	fmt.Fprintf(w, "id:        %s\n", call.ID)
	fmt.Fprintf(w, "owner:     %s\n", call.OwnerID)
	fmt.Fprintf(w, "endpoint:  %s %s\n", call.Method, call.Endpoint)
	fmt.Fprintf(w, "active:    %t\n", call.Active)
	fmt.Fprintf(w, "next_call: %s\n", call.NextCall.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "retries:   %d\n", call.RetriesRemaining)
	if call.LastStatus != nil {
		fmt.Fprintf(w, "last:      %d\n", *call.LastStatus)
	}
	if call.LastError != nil {
		fmt.Fprintf(w, "error:     %s\n", *call.LastError)
	}
}
