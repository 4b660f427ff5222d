package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridtrader/backtest"
	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/pkg/id"
	"github.com/rustyeddy/gridtrader/strategies"
)

func newBacktestCmd(rc *RootConfig) *cobra.Command {
	var (
		symbol   string
		interval string
		strategy string
		params   []string
		fromStr  string
		toStr    string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run one strategy parameter set over a candle file",
		Long: `Run a single backtest and print the account summary.

Parameters start from the first entry of the strategy's grid and can be
overridden with --param name=value.

Example:
  trader backtest --symbol BTCUSDT --interval 5 --strategy ma-cross --param short_ma=10 --param long_ma=50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rc.Config
			if strategy == "" {
				strategy = cfg.Optimizer.Strategy
			}
			f, err := strategies.Lookup(strategy)
			if err != nil {
				return err
			}
			p, ok := strategies.Defaults(f)
			if !ok {
				return fmt.Errorf("%s: empty parameter grid", f.Name())
			}
			for _, kv := range params {
				if p, err = p.Set(kv); err != nil {
					return err
				}
			}

			cs, err := market.Dir{Root: cfg.Data.Dir}.Load(symbol, interval)
			if err != nil {
				return err
			}
			interval = cs.Interval
			if err := cs.CheckGaps(); err != nil {
				rc.Log.Warn("backtesting a series with gaps", zap.Error(err))
			}
			candles := cs.Candles
			if fromStr != "" || toStr != "" {
				from, err := parseBound(fromStr)
				if err != nil {
					return fmt.Errorf("bad --from: %w", err)
				}
				to, err := parseBound(toStr)
				if err != nil {
					return fmt.Errorf("bad --to: %w", err)
				}
				candles = market.Between(candles, from, to)
			}

			j, err := cfg.Journal.Open()
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			runID := id.Run("bt")
			rc.Log.Info("backtest",
				zap.String("run_id", runID),
				zap.String("symbol", symbol),
				zap.String("interval", interval),
				zap.Stringer("params", p),
				zap.Int("candles", len(candles)),
			)

			r := &backtest.Runner{
				Config:  cfg.EngineConfig(),
				Logger:  rc.Log,
				Journal: j,
				RunID:   runID,
			}
			res, err := r.Run(cmd.Context(), f, p, symbol, interval, candles)
			if err != nil {
				return err
			}

			title := fmt.Sprintf("%s %sm %s  %s", symbol, interval, f.Name(), p)
			backtest.PrintSplitResult(cmd.OutOrStdout(), title, cfg.Account.StartingBalance, res)
			fmt.Fprintf(cmd.OutOrStdout(), "Run ID:        %s\n", runID)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "Symbol, e.g. BTCUSDT")
	cmd.Flags().StringVar(&interval, "interval", "5", "Candle interval in minutes")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Strategy name (default optimizer.strategy)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Parameter override name=value (repeatable)")
	cmd.Flags().StringVar(&fromStr, "from", "", "Start time (inclusive)")
	cmd.Flags().StringVar(&toStr, "to", "", "End time (exclusive)")

	return cmd
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return market.ParseTimestamp(s)
}
