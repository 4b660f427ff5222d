package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/sim"
	"github.com/rustyeddy/gridtrader/strategies"
)

// SplitResult is the outcome of one strategy run over one candle window.
type SplitResult struct {
	FinalBalance float64
	Trades       []sim.Trade
	EquityCurve  []sim.EquityPoint
	Summary      sim.Summary
	Skipped      int
	Signals      int
}

// Runner drives a fresh engine over one candle window.
type Runner struct {
	Config sim.Config
	Logger *zap.Logger

	// Journal and RunID are optional; when set every trade and equity
	// sample of the run is recorded.
	Journal journal.Journal
	RunID   string
}

// Run executes the backtest loop:
//  1. build the strategy and collect its signals
//  2. merge signals with per-candle price updates
//  3. feed every event to the engine
//  4. close anything still open at the last candle's close
func (r *Runner) Run(ctx context.Context, f strategies.Factory, p strategies.Params, symbol, interval string, candles []market.Candle) (SplitResult, error) {
	if f == nil {
		return SplitResult{}, fmt.Errorf("backtest: strategy factory is required")
	}
	if len(candles) == 0 {
		return SplitResult{}, ErrEmptySeries
	}

	s, err := f.New(symbol, interval, candles, p)
	if err != nil {
		return SplitResult{}, err
	}
	if err := s.Run(); err != nil {
		return SplitResult{}, fmt.Errorf("%s: run: %w", f.Name(), err)
	}
	signals := s.Results()

	opts := []sim.Option{sim.WithLogger(r.Logger), sim.WithRunID(r.RunID)}
	if r.Journal != nil {
		opts = append(opts, sim.WithJournal(r.Journal))
	}
	e := sim.NewEngine(r.Config, opts...)

	feed := NewSliceFeed(MergeEvents(signals, candles, symbol))
	if err := Replay(ctx, e, feed); err != nil {
		return SplitResult{}, err
	}

	last := candles[len(candles)-1]
	if err := e.CloseAll(last.Time, last.Close); err != nil {
		return SplitResult{}, err
	}

	sum := e.Summary()
	return SplitResult{
		FinalBalance: sum.FinalBalance,
		Trades:       e.Trades(),
		EquityCurve:  e.EquityCurve(),
		Summary:      sum,
		Skipped:      sum.Skipped,
		Signals:      len(signals),
	}, nil
}

// Replay feeds every event to e until the feed is exhausted, the engine
// rejects an event or ctx is done. The feed is closed on return.
func Replay(ctx context.Context, e *sim.Engine, feed EventFeed) error {
	defer feed.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok, err := feed.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := e.ProcessSignal(ev); err != nil {
			return err
		}
	}
}
