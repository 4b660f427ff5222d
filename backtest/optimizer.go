package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/sim"
	"github.com/rustyeddy/gridtrader/strategies"
)

// Mode selects how candles are split into train and test windows.
type Mode string

const (
	ModeSplit       Mode = "split"       // fixed train/test days from the end
	ModeWalkForward Mode = "walkforward" // 2/3 of historical days train, 1/3 test
	ModeRolling     Mode = "rolling"     // every step-sized window, results summed
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSplit, ModeWalkForward, ModeRolling:
		return m, nil
	case "":
		return ModeSplit, nil
	}
	return "", fmt.Errorf("unknown optimizer mode %q (supported: split, walkforward, rolling)", s)
}

type Options struct {
	Mode           Mode
	TrainDays      int
	TestDays       int
	StepDays       int
	HistoricalDays int

	// Workers > 1 evaluates combinations concurrently.
	Workers int
}

// CandleSource loads the full series for a symbol/interval pair.
type CandleSource interface {
	Candles(symbol, interval string) ([]market.Candle, error)
}

type CandleSourceFunc func(symbol, interval string) ([]market.Candle, error)

func (f CandleSourceFunc) Candles(symbol, interval string) ([]market.Candle, error) {
	return f(symbol, interval)
}

// DirSource reads candle files from a data directory and logs ingest
// repairs. A series with missing bars is refused with market.ErrDataGap.
func DirSource(d market.Dir, log *zap.Logger) CandleSource {
	if log == nil {
		log = zap.NewNop()
	}
	return CandleSourceFunc(func(symbol, interval string) ([]market.Candle, error) {
		cs, err := d.Load(symbol, interval)
		if err != nil {
			return nil, err
		}
		if dups, bad, unsorted := cs.Warnings(); dups > 0 || bad > 0 || unsorted {
			log.Warn("candle file repaired",
				zap.String("file", cs.Filepath),
				zap.Int("duplicates", dups),
				zap.Int("bad_lines", bad),
				zap.Bool("unsorted", unsorted),
			)
		}
		if err := cs.CheckGaps(); err != nil {
			return nil, err
		}
		return cs.Candles, nil
	})
}

// Report counts what happened during an optimization. Errors holds one
// entry per failed combination or skipped pair.
type Report struct {
	Total        int
	Completed    int
	Failed       int
	SkippedPairs int
	Errors       []error
}

func (r *Report) add(o Report) {
	r.Total += o.Total
	r.Completed += o.Completed
	r.Failed += o.Failed
	r.SkippedPairs += o.SkippedPairs
	r.Errors = append(r.Errors, o.Errors...)
}

// CombinationError is a parameter set whose run failed or panicked.
type CombinationError struct {
	TestID int
	Params strategies.Params
	Err    error
}

func (e *CombinationError) Error() string {
	return fmt.Sprintf("combination %d (%s): %v", e.TestID, e.Params, e.Err)
}

func (e *CombinationError) Unwrap() error { return e.Err }

// Optimizer scores every parameter set of one strategy on train and test
// windows.
type Optimizer struct {
	Factory strategies.Factory
	Config  sim.Config
	Options Options
	Logger  *zap.Logger

	// Progress is called after every combination with the running count.
	Progress func(done, total int)
	// OnResult is called for every successful row as it completes.
	OnResult func(Result)
}

// Run optimizes one candle series. Failed combinations are logged, counted
// and left out. Rows are sorted by test final balance, best first. A
// cancelled ctx returns the rows finished so far together with ctx.Err().
func (o *Optimizer) Run(ctx context.Context, symbol, interval string, candles []market.Candle) ([]Result, Report, error) {
	var rep Report
	if o.Factory == nil {
		return nil, rep, fmt.Errorf("optimizer: strategy factory is required")
	}
	interval, err := market.NormalizeInterval(interval)
	if err != nil {
		return nil, rep, fmt.Errorf("optimizer: %w", err)
	}
	log := o.logger().With(zap.String("symbol", symbol), zap.String("interval", interval))

	splits, err := o.splits(candles)
	if err != nil {
		return nil, rep, err
	}

	rep.Total = strategies.Count(o.Factory.Combinations())
	log.Info("optimizing",
		zap.String("strategy", o.Factory.Name()),
		zap.String("mode", string(o.mode())),
		zap.Int("windows", len(splits)),
		zap.Int("combinations", rep.Total),
	)

	var (
		mu   sync.Mutex
		rows []Result
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.Options.Workers, 1))

	testID := 0
	for p := range o.Factory.Combinations() {
		if ctx.Err() != nil {
			break
		}
		testID++
		id := testID

		g.Go(func() error {
			res, err := o.evaluate(gctx, symbol, interval, id, p, splits)

			mu.Lock()
			defer mu.Unlock()

			done++
			switch {
			case err == nil:
				rows = append(rows, res)
				rep.Completed++
				log.Debug("combination done",
					zap.Int("test_id", id),
					zap.Stringer("params", p),
					zap.Float64("train_balance", res.TrainFinalBalance),
					zap.Float64("test_balance", res.TestFinalBalance),
				)
				if o.OnResult != nil {
					o.OnResult(res)
				}
			case ctx.Err() != nil:
				// cancelled mid-run; not a failure of the parameter set
			default:
				rep.Failed++
				rep.Errors = append(rep.Errors, err)
				log.Error("combination failed", zap.Int("test_id", id), zap.Error(err))
			}
			if o.Progress != nil {
				o.Progress(done, rep.Total)
			}
			return nil
		})
	}
	_ = g.Wait()

	SortResults(rows)
	return rows, rep, ctx.Err()
}

// Sweep runs the optimizer over every symbol/interval pair from src. Pairs
// that cannot be loaded or split are logged and skipped.
func (o *Optimizer) Sweep(ctx context.Context, src CandleSource, symbols, intervals []string) ([]Result, Report, error) {
	var (
		all []Result
		rep Report
	)
	log := o.logger()

	for _, symbol := range symbols {
		for _, raw := range intervals {
			if err := ctx.Err(); err != nil {
				SortResults(all)
				return all, rep, err
			}

			interval, err := market.NormalizeInterval(raw)
			if err != nil {
				rep.SkippedPairs++
				rep.Errors = append(rep.Errors, fmt.Errorf("%s %s: %w", symbol, raw, err))
				log.Warn("skipping pair", zap.String("symbol", symbol), zap.String("interval", raw), zap.Error(err))
				continue
			}

			candles, err := src.Candles(symbol, interval)
			if err == nil && len(candles) == 0 {
				err = ErrEmptySeries
			}
			if err != nil {
				rep.SkippedPairs++
				rep.Errors = append(rep.Errors, fmt.Errorf("%s %sm: %w", symbol, interval, err))
				log.Warn("skipping pair", zap.String("symbol", symbol), zap.String("interval", interval), zap.Error(err))
				continue
			}

			rows, r, err := o.Run(ctx, symbol, interval, candles)
			rep.add(r)
			all = append(all, rows...)

			switch {
			case err == nil:
			case errors.Is(err, ErrEmptySeries), errors.Is(err, ErrSplitTooSmall):
				rep.SkippedPairs++
				rep.Errors = append(rep.Errors, fmt.Errorf("%s %sm: %w", symbol, interval, err))
				log.Warn("skipping pair", zap.String("symbol", symbol), zap.String("interval", interval), zap.Error(err))
			default:
				SortResults(all)
				return all, rep, err
			}
		}
	}

	SortResults(all)
	return all, rep, nil
}

func (o *Optimizer) evaluate(ctx context.Context, symbol, interval string, testID int, p strategies.Params, splits []Split) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CombinationError{TestID: testID, Params: p, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	runner := &Runner{Config: o.Config, Logger: o.logger()}
	start := o.Config.StartingBalance

	var train, test []sim.Trade
	var trainBalance, testBalance float64
	for i, s := range splits {
		tr, err := runner.Run(ctx, o.Factory, p, symbol, interval, s.Train)
		if err != nil {
			return Result{}, &CombinationError{TestID: testID, Params: p, Err: fmt.Errorf("train: %w", err)}
		}
		te, err := runner.Run(ctx, o.Factory, p, symbol, interval, s.Test)
		if err != nil {
			return Result{}, &CombinationError{TestID: testID, Params: p, Err: fmt.Errorf("test: %w", err)}
		}
		// Rolling windows each start from a fresh account; their P&L adds up.
		if i == 0 {
			trainBalance, testBalance = tr.FinalBalance, te.FinalBalance
		} else {
			trainBalance += tr.FinalBalance - start
			testBalance += te.FinalBalance - start
		}
		train = append(train, tr.Trades...)
		test = append(test, te.Trades...)
	}

	res = Result{
		TestID:            testID,
		Symbol:            symbol,
		Interval:          interval,
		Params:            p,
		TrainFinalBalance: trainBalance,
		TestFinalBalance:  testBalance,
		TrainTrades:       len(train),
		TestTrades:        len(test),
		WinRatePct:        WinRate(test) * 100,
		MaxDrawdownPct:    MaxDrawdownPct(test, start),
	}
	if o.mode() != ModeSplit {
		res.TrainEquity = EquityFromTrades(train, start)
		res.TestEquity = EquityFromTrades(test, start)
	}
	return res, nil
}

func (o *Optimizer) splits(candles []market.Candle) ([]Split, error) {
	opt := o.Options
	switch o.mode() {
	case ModeWalkForward:
		s, err := WalkForwardSplit(candles, opt.HistoricalDays)
		if err != nil {
			return nil, err
		}
		return []Split{s}, nil
	case ModeRolling:
		return RollingWindows(candles, opt.TrainDays, opt.TestDays, opt.StepDays)
	default:
		s, err := SplitTrainTest(candles, opt.TrainDays, opt.TestDays)
		if err != nil {
			return nil, err
		}
		return []Split{s}, nil
	}
}

func (o *Optimizer) mode() Mode {
	if o.Options.Mode == "" {
		return ModeSplit
	}
	return o.Options.Mode
}

func (o *Optimizer) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// SortResults orders rows by test final balance, best first. Ties fall back
// to symbol, interval and TestID so the order never depends on scheduling.
func SortResults(rows []Result) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TestFinalBalance != b.TestFinalBalance {
			return a.TestFinalBalance > b.TestFinalBalance
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Interval != b.Interval {
			return a.Interval < b.Interval
		}
		return a.TestID < b.TestID
	})
}
