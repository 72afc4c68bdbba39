package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/smallbiznis/followup/internal/facility/registry"
	recurringdomain "github.com/smallbiznis/followup/internal/recurring/domain"
	"github.com/smallbiznis/followup/internal/scheduler"
	"github.com/spf13/cobra"
)

// Deps are the services the operator commands act on.
type Deps struct {
	Recurring  recurringdomain.Service
	Scheduler  *scheduler.Scheduler
	Facilities *registry.Registry
}

// Loader builds Deps and returns a function that releases them.
type Loader func(ctx context.Context) (*Deps, func(), error)

type RootOptions struct {
	Format string

	load Loader
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand(load Loader) *cobra.Command {
	opts := &RootOptions{load: load}

	cmd := &cobra.Command{
		Use:           "followupctl",
		Short:         "Operate follow-up requests and recurring calls",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRecurringCommand(opts))
	cmd.AddCommand(NewSchedulerCommand(opts))
	cmd.AddCommand(NewFacilitiesCommand(opts))

	return cmd
}

func (o *RootOptions) withDeps(cmd *cobra.Command, fn func(ctx context.Context, deps *Deps) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	deps, release, err := o.load(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer release()
	return fn(ctx, deps)
}

// write renders v as indented JSON or hands it to text.
func (o *RootOptions) write(w io.Writer, v any, text func(io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
