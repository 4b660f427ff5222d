package backtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/strategies"
)

func testIDs(rows []Result) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.TestID
	}
	return out
}

func newOptimizer(mode Mode, workers int) *Optimizer {
	return &Optimizer{
		Factory: holdFactory(10),
		Config:  testConfig(),
		Options: Options{
			Mode:           mode,
			TrainDays:      20,
			TestDays:       10,
			StepDays:       10,
			HistoricalDays: 30,
			Workers:        workers,
		},
	}
}

func TestOptimizerSkipsFailedCombinations(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	o := newOptimizer(ModeSplit, 1)
	o.Logger = zap.New(core)

	var progress [][2]int
	var streamed []int
	o.Progress = func(done, total int) { progress = append(progress, [2]int{done, total}) }
	o.OnResult = func(r Result) { streamed = append(streamed, r.TestID) }

	rows, rep, err := o.Run(context.Background(), "BTCUSDT", "60", hourly(30*24))
	require.NoError(t, err)

	// longer holds on a rising series earn more
	assert.Equal(t, []int{10, 9, 8, 6, 5, 4, 2, 1}, testIDs(rows))
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].TestFinalBalance, rows[i].TestFinalBalance)
	}

	assert.Equal(t, 10, rep.Total)
	assert.Equal(t, 8, rep.Completed)
	assert.Equal(t, 2, rep.Failed)
	require.Len(t, rep.Errors, 2)

	var ce *CombinationError
	require.ErrorAs(t, rep.Errors[0], &ce)
	assert.Equal(t, 3, ce.TestID)
	assert.ErrorIs(t, rep.Errors[0], errBadCombo)
	require.ErrorAs(t, rep.Errors[1], &ce)
	assert.Equal(t, 7, ce.TestID)
	assert.Contains(t, ce.Error(), "panic: strategy blew up")

	assert.Equal(t, 2, logs.FilterMessage("combination failed").Len())

	require.Len(t, progress, 10)
	assert.Equal(t, [2]int{10, 10}, progress[9])
	assert.Equal(t, []int{1, 2, 4, 5, 6, 8, 9, 10}, streamed)
}

func TestOptimizerRowContents(t *testing.T) {
	t.Parallel()

	rows, _, err := newOptimizer(ModeSplit, 1).Run(context.Background(), "BTCUSDT", "60", hourly(30*24))
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	top := rows[0]
	assert.Equal(t, "BTCUSDT", top.Symbol)
	assert.Equal(t, "60", top.Interval)
	assert.Equal(t, strategies.Params{{Name: "hold", Value: 10}}, top.Params)
	assert.Equal(t, 1, top.TrainTrades)
	assert.Equal(t, 1, top.TestTrades)
	assert.Equal(t, 100.0, top.WinRatePct)
	assert.Equal(t, 0.0, top.MaxDrawdownPct)
	assert.Greater(t, top.TestFinalBalance, 10000.0)
	assert.Nil(t, top.TestEquity)

	rec := top.Record()
	assert.Equal(t, []string{"hold"}, rec.ParamNames)
	assert.Equal(t, []string{"10"}, rec.ParamValues)
	assert.Equal(t, top.TestFinalBalance, rec.TestFinalBalance)
	assert.Len(t, Records(rows), len(rows))
}

func TestOptimizerParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	candles := hourly(30 * 24)
	seq, seqRep, err := newOptimizer(ModeSplit, 1).Run(context.Background(), "BTCUSDT", "60", candles)
	require.NoError(t, err)
	par, parRep, err := newOptimizer(ModeSplit, 4).Run(context.Background(), "BTCUSDT", "60", candles)
	require.NoError(t, err)

	assert.Equal(t, testIDs(seq), testIDs(par))
	assert.Equal(t, seqRep.Completed, parRep.Completed)
	assert.Equal(t, seqRep.Failed, parRep.Failed)
	for i := range seq {
		assert.Equal(t, seq[i].TestFinalBalance, par[i].TestFinalBalance)
	}
}

func TestOptimizerModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mode       Mode
		days       int
		testTrades int
		curves     bool
	}{
		{"split", ModeSplit, 30, 1, false},
		{"walkforward", ModeWalkForward, 30, 1, true},
		{"rolling", ModeRolling, 60, 3, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows, rep, err := newOptimizer(tt.mode, 2).Run(context.Background(), "BTCUSDT", "60", hourly(tt.days*24))
			require.NoError(t, err)
			assert.Equal(t, 8, rep.Completed)
			for _, r := range rows {
				assert.Equal(t, tt.testTrades, r.TestTrades)
				if tt.curves {
					assert.Len(t, r.TestEquity, tt.testTrades)
					assert.Len(t, r.TrainEquity, r.TrainTrades)
				} else {
					assert.Nil(t, r.TestEquity)
				}
			}
		})
	}
}

func TestOptimizerRollingSumsWindows(t *testing.T) {
	t.Parallel()

	o := newOptimizer(ModeRolling, 1)
	candles := hourly(60 * 24)
	rows, _, err := o.Run(context.Background(), "BTCUSDT", "60", candles)
	require.NoError(t, err)

	windows, err := RollingWindows(candles, 20, 10, 10)
	require.NoError(t, err)

	r := &Runner{Config: testConfig()}
	params := strategies.Params{{Name: "hold", Value: 10}}
	want := 10000.0
	for _, w := range windows {
		res, err := r.Run(context.Background(), o.Factory, params, "BTCUSDT", "60", w.Test)
		require.NoError(t, err)
		want += res.FinalBalance - 10000
	}
	assert.InDelta(t, want, rows[0].TestFinalBalance, 1e-6)
}

func TestOptimizerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, rep, err := newOptimizer(ModeSplit, 1).Run(ctx, "BTCUSDT", "60", hourly(30*24))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rows)
	assert.Equal(t, 0, rep.Failed)
}

func TestOptimizerSplitErrors(t *testing.T) {
	t.Parallel()

	o := newOptimizer(ModeSplit, 1)
	_, _, err := o.Run(context.Background(), "BTCUSDT", "60", nil)
	assert.ErrorIs(t, err, ErrEmptySeries)

	_, _, err = o.Run(context.Background(), "BTCUSDT", "60", hourly(24))
	assert.ErrorIs(t, err, ErrSplitTooSmall)

	_, _, err = (&Optimizer{}).Run(context.Background(), "BTCUSDT", "60", hourly(24))
	assert.Error(t, err)
}

func TestOptimizerSweep(t *testing.T) {
	t.Parallel()

	src := CandleSourceFunc(func(symbol, interval string) ([]market.Candle, error) {
		switch {
		case symbol == "ETHUSDT":
			return nil, fmt.Errorf("ETHUSDT: %w", market.ErrNotFound)
		case interval == "5":
			return hourly(24), nil
		case interval == "15":
			return nil, nil
		}
		return hourly(30 * 24), nil
	})

	core, logs := observer.New(zap.WarnLevel)
	o := newOptimizer(ModeSplit, 1)
	o.Logger = zap.New(core)

	rows, rep, err := o.Sweep(context.Background(), src, []string{"BTCUSDT", "ETHUSDT"}, []string{"1", "5", "15"})
	require.NoError(t, err)

	assert.Len(t, rows, 8)
	for _, r := range rows {
		assert.Equal(t, "BTCUSDT", r.Symbol)
		assert.Equal(t, "1", r.Interval)
	}
	assert.Equal(t, 5, rep.SkippedPairs)
	assert.Equal(t, 10, rep.Total)
	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, 5, logs.FilterMessage("skipping pair").Len())

	var notFound int
	for _, e := range rep.Errors {
		if errors.Is(e, market.ErrNotFound) {
			notFound++
		}
	}
	assert.Equal(t, 3, notFound)
}

func TestOptimizerSweepNormalizesInterval(t *testing.T) {
	t.Parallel()

	var asked []string
	src := CandleSourceFunc(func(symbol, interval string) ([]market.Candle, error) {
		asked = append(asked, interval)
		return hourly(30 * 24), nil
	})

	rows, rep, err := newOptimizer(ModeSplit, 1).Sweep(context.Background(), src, []string{"BTCUSDT"}, []string{"1h", "weekly-ish"})
	require.NoError(t, err)

	assert.Equal(t, []string{"60"}, asked)
	require.Len(t, rows, 8)
	assert.Equal(t, "60", rows[0].Interval)
	assert.Equal(t, 1, rep.SkippedPairs)

	var buf bytes.Buffer
	PrintTop(&buf, rows, 1)
	assert.Contains(t, buf.String(), "  60m  ")
	assert.NotContains(t, buf.String(), "hm")
}

func writeCandles(t *testing.T, path string, candles []market.Candle) {
	t.Helper()

	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume\n")
	for _, c := range candles {
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,%g\n", c.Time.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func TestDirSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clean := hourly(30 * 24)
	writeCandles(t, filepath.Join(dir, "BTCUSDT_60m.csv"), clean)

	// One missing hour in an otherwise complete month.
	gapped := append(hourly(30*24)[:100:100], hourly(30*24)[101:]...)
	writeCandles(t, filepath.Join(dir, "ETHUSDT_60m.csv"), gapped)

	src := DirSource(market.Dir{Root: dir}, nil)

	got, err := src.Candles("BTCUSDT", "60")
	require.NoError(t, err)
	assert.Len(t, got, len(clean))

	_, err = src.Candles("ETHUSDT", "60")
	assert.ErrorIs(t, err, market.ErrDataGap)

	_, err = src.Candles("SOLUSDT", "60")
	assert.ErrorIs(t, err, market.ErrNotFound)

	core, logs := observer.New(zap.WarnLevel)
	o := newOptimizer(ModeSplit, 1)
	o.Logger = zap.New(core)

	rows, rep, err := o.Sweep(context.Background(), src, []string{"BTCUSDT", "ETHUSDT"}, []string{"60"})
	require.NoError(t, err)
	assert.Len(t, rows, 8)
	for _, r := range rows {
		assert.Equal(t, "BTCUSDT", r.Symbol)
	}
	assert.Equal(t, 1, rep.SkippedPairs)
	require.Len(t, rep.Errors, 3)
	var gaps int
	for _, e := range rep.Errors {
		if errors.Is(e, market.ErrDataGap) {
			gaps++
		}
	}
	assert.Equal(t, 1, gaps)
	assert.Equal(t, 1, logs.FilterMessage("skipping pair").Len())
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeSplit, false},
		{"split", ModeSplit, false},
		{" WalkForward ", ModeWalkForward, false},
		{"rolling", ModeRolling, false},
		{"monte-carlo", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortResultsTiebreak(t *testing.T) {
	t.Parallel()

	rows := []Result{
		{TestID: 2, Symbol: "BTCUSDT", TestFinalBalance: 100},
		{TestID: 1, Symbol: "ETHUSDT", TestFinalBalance: 100},
		{TestID: 1, Symbol: "BTCUSDT", TestFinalBalance: 100},
		{TestID: 3, Symbol: "BTCUSDT", TestFinalBalance: 200},
	}
	SortResults(rows)
	assert.Equal(t, []int{3, 1, 2, 1}, testIDs(rows))
	assert.Equal(t, "ETHUSDT", rows[3].Symbol)
}
