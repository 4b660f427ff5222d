package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridtrader/market"
)

func newGapsCmd(rc *RootConfig) *cobra.Command {
	var (
		symbols   []string
		intervals []string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Report missing candles in the data directory",
		Long: `Load every <SYMBOL>_<interval>m.csv file and report gaps in the series.

Crypto markets trade around the clock, so every gap is missing data. Gaps
of a day or more are "outage", gaps of ten bars or more are "major", the
rest "minor". The optimizer skips any series with gaps.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rc.Config
			if len(symbols) == 0 {
				symbols = cfg.Data.Symbols
			}
			if len(intervals) == 0 {
				intervals = cfg.Data.Intervals
			}

			out := cmd.OutOrStdout()
			dir := market.Dir{Root: cfg.Data.Dir}
			for _, s := range symbols {
				for _, iv := range intervals {
					cs, err := dir.Load(s, iv)
					if errors.Is(err, market.ErrNotFound) {
						rc.Log.Warn("no candle file", zap.String("path", dir.Path(s, iv)))
						continue
					}
					if err != nil {
						return err
					}
					cs.PrintStats(out)
					if verbose {
						for _, g := range cs.Gaps {
							fmt.Fprintf(out, "  %s -> %s  %d bars  %s\n",
								g.After.Format("2006-01-02 15:04"), g.Before.Format("2006-01-02 15:04"), g.Missing, g.Kind)
						}
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Symbols (default data.symbols)")
	cmd.Flags().StringSliceVar(&intervals, "intervals", nil, "Intervals in minutes (default data.intervals)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every gap")
	return cmd
}
