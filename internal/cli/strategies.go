package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridtrader/strategies"
)

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List strategies and their parameter grids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range strategies.Names() {
				f, err := strategies.Lookup(name)
				if err != nil {
					return err
				}
				p, _ := strategies.Defaults(f)
				fmt.Fprintf(out, "%-10s %3d combinations  first: %s\n", name, strategies.Count(f.Combinations()), p)
			}
			return nil
		},
	}
}
