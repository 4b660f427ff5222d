package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridtrader/backtest"
	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/pkg/id"
	"github.com/rustyeddy/gridtrader/strategies"
)

type optimizeFlags struct {
	strategy   string
	mode       string
	symbols    []string
	intervals  []string
	workers    int
	topN       int
	noProgress bool
}

func newOptimizeCmd(rc *RootConfig) *cobra.Command {
	var fl optimizeFlags

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Grid-search a strategy on train/test splits of every symbol and interval",
		Long: `Evaluate every parameter set of a strategy on a train window and the test
window that follows it, then rank by test final balance.

Modes:
  split        fixed optimizer.train_days / optimizer.test_days from the end
  walkforward  2/3 of data.historical_days train, 1/3 test
  rolling      every test window stepping back optimizer.step_days, summed

Results are written to <results_dir>/<strategy>_<mode>_results.csv and
<results_dir>/<strategy>_<mode>_top<N>.csv.

Example:
  trader optimize --strategy rsi-ma --symbols BTCUSDT,ETHUSDT --intervals 5,15 --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd.Context(), cmd.OutOrStdout(), rc, fl)
		},
	}
	bindOptimizeFlags(cmd, &fl)
	cmd.Flags().StringVar(&fl.mode, "mode", "", "split|walkforward|rolling (default optimizer.mode)")
	return cmd
}

func newWalkForwardCmd(rc *RootConfig) *cobra.Command {
	var fl optimizeFlags

	cmd := &cobra.Command{
		Use:   "walkforward",
		Short: "Optimize with a 2/3 train, 1/3 test split of data.historical_days",
		RunE: func(cmd *cobra.Command, args []string) error {
			fl.mode = string(backtest.ModeWalkForward)
			return runOptimize(cmd.Context(), cmd.OutOrStdout(), rc, fl)
		},
	}
	bindOptimizeFlags(cmd, &fl)
	return cmd
}

func bindOptimizeFlags(cmd *cobra.Command, fl *optimizeFlags) {
	cmd.Flags().StringVar(&fl.strategy, "strategy", "", "Strategy name (default optimizer.strategy)")
	cmd.Flags().StringSliceVar(&fl.symbols, "symbols", nil, "Symbols (default data.symbols)")
	cmd.Flags().StringSliceVar(&fl.intervals, "intervals", nil, "Intervals in minutes (default data.intervals)")
	cmd.Flags().IntVar(&fl.workers, "workers", 0, "Concurrent combinations (default optimizer.workers)")
	cmd.Flags().IntVar(&fl.topN, "top", 0, "Rows in the top-N file (default optimizer.top_n)")
	cmd.Flags().BoolVar(&fl.noProgress, "no-progress", false, "Disable the progress bar")
}

func runOptimize(ctx context.Context, out io.Writer, rc *RootConfig, fl optimizeFlags) error {
	cfg := *rc.Config
	if fl.strategy != "" {
		cfg.Optimizer.Strategy = fl.strategy
	}
	if fl.mode != "" {
		cfg.Optimizer.Mode = fl.mode
	}
	if len(fl.symbols) > 0 {
		cfg.Data.Symbols = fl.symbols
	}
	if len(fl.intervals) > 0 {
		cfg.Data.Intervals = fl.intervals
	}
	if fl.workers > 0 {
		cfg.Optimizer.Workers = fl.workers
	}
	if fl.topN > 0 {
		cfg.Optimizer.TopN = fl.topN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	f, err := strategies.Lookup(cfg.Optimizer.Strategy)
	if err != nil {
		return err
	}
	opts := cfg.OptimizerOptions()
	runID := id.Run("opt")
	log := rc.Log.With(zap.String("run_id", runID))

	o := &backtest.Optimizer{
		Factory: f,
		Config:  cfg.EngineConfig(),
		Options: opts,
		Logger:  log,
	}

	// Sweep loads pairs one at a time; remember which one is running for
	// the progress bar description.
	var current string
	dir := backtest.DirSource(market.Dir{Root: cfg.Data.Dir}, log)
	src := backtest.CandleSourceFunc(func(symbol, interval string) ([]market.Candle, error) {
		current = fmt.Sprintf("%s %sm", symbol, interval)
		return dir.Candles(symbol, interval)
	})

	var bar *progressbar.ProgressBar
	if !fl.noProgress {
		o.Progress = func(done, total int) {
			if done == 1 || bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription(current),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		}
	}

	start := time.Now()
	rows, rep, runErr := o.Sweep(ctx, src, cfg.Data.Symbols, cfg.Data.Intervals)
	if bar != nil {
		_ = bar.Finish()
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		log.Warn("optimization cancelled; saving partial results", zap.Int("rows", len(rows)))
	}

	fmt.Fprintln(out)
	backtest.PrintReport(out, rep, time.Since(start))
	if len(rows) == 0 {
		fmt.Fprintln(out, "No optimization results to save.")
		return runErr
	}
	backtest.PrintTop(out, rows, cfg.Optimizer.TopN)

	records := backtest.Records(rows)
	base := filepath.Join(cfg.Optimizer.ResultsDir, fmt.Sprintf("%s_%s", f.Name(), opts.Mode))
	allPath := base + "_results.csv"
	topPath := fmt.Sprintf("%s_top%d.csv", base, cfg.Optimizer.TopN)
	if err := journal.SaveResults(allPath, records); err != nil {
		return err
	}
	if err := journal.SaveTopResults(topPath, records, cfg.Optimizer.TopN); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSaved %d rows to %s and top %d to %s\n", len(records), allPath, cfg.Optimizer.TopN, topPath)

	if cfg.Journal.Type == "sqlite" {
		run := journal.BacktestRun{
			RunID:        runID,
			Created:      start,
			Strategy:     f.Name(),
			Mode:         string(opts.Mode),
			Symbols:      cfg.Data.Symbols,
			Intervals:    cfg.Data.Intervals,
			StartBalance: cfg.Account.StartingBalance,
			Combinations: rep.Total,
			Completed:    rep.Completed,
			Failed:       rep.Failed,
			SkippedPairs: rep.SkippedPairs,
		}
		orgPath := base + ".org"
		if err := recordRun(ctx, cfg.Journal.DBPath, run, records, cfg.Optimizer.TopN, orgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Recorded run %s in %s (report %s)\n", runID, cfg.Journal.DBPath, orgPath)
	}
	return runErr
}

func recordRun(ctx context.Context, dbPath string, run journal.BacktestRun, rows []journal.ResultRecord, topN int, orgPath string) error {
	db, err := journal.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	// a cancelled sweep still records what it finished
	ctx = context.WithoutCancel(ctx)
	if err := db.RecordBacktest(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if err := db.RecordResults(run.RunID, rows); err != nil {
		return fmt.Errorf("record results: %w", err)
	}
	org, err := db.ExportBacktestOrg(ctx, run.RunID, topN)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return os.WriteFile(orgPath, []byte(org), 0o644)
}
