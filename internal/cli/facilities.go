package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type facilityView struct {
	Facility string `json:"facility"`
	Editable bool   `json:"editable"`
}

func NewFacilitiesCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facilities",
		Short: "Inspect configured facilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the facilities requests can be dispatched to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withDeps(cmd, func(ctx context.Context, deps *Deps) error {
				names := deps.Facilities.Facilities()
				views := make([]facilityView, 0, len(names))
				for _, name := range names {
					driver, err := deps.Facilities.Resolve(name)
					if err != nil {
						return err
					}
					views = append(views, facilityView{Facility: name, Editable: driver.RequestsEditable()})
				}
				return root.write(cmd.OutOrStdout(), views, func(w io.Writer) {
					if len(views) == 0 {
						fmt.Fprintln(w, "no facilities configured")
						return
					}
					for _, v := range views {
						fmt.Fprintf(w, "%s\teditable=%t\n", v.Facility, v.Editable)
					}
				})
			})
		},
	})
	return cmd
}
