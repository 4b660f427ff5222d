package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/gridtrader/market"
)

var (
	ErrEmptySeries   = errors.New("empty candle series")
	ErrSplitTooSmall = errors.New("not enough candles for train/test split")
)

const day = 24 * time.Hour

// Split is one train window followed by its test window.
type Split struct {
	Train []market.Candle
	Test  []market.Candle

	TrainStart time.Time
	TestStart  time.Time
	End        time.Time
}

// SplitTrainTest anchors at the last candle: test covers the final testDays
// (inclusive of the last candle) and train the trainDays before that.
func SplitTrainTest(candles []market.Candle, trainDays, testDays int) (Split, error) {
	if len(candles) == 0 {
		return Split{}, ErrEmptySeries
	}
	if trainDays <= 0 || testDays <= 0 {
		return Split{}, fmt.Errorf("train %d / test %d days: %w", trainDays, testDays, ErrSplitTooSmall)
	}

	end := candles[len(candles)-1].Time
	s := window(candles, end, end.Add(time.Nanosecond), trainDays, testDays)
	if len(s.Train) == 0 || len(s.Test) == 0 {
		return Split{}, fmt.Errorf("%d candles for %d+%d days: %w", len(candles), trainDays, testDays, ErrSplitTooSmall)
	}
	return s, nil
}

// WalkForwardSplit gives two thirds of historicalDays to train and the rest
// to test.
func WalkForwardSplit(candles []market.Candle, historicalDays int) (Split, error) {
	trainDays := historicalDays * 2 / 3
	return SplitTrainTest(candles, trainDays, historicalDays-trainDays)
}

// RollingWindows walks backwards from the last candle in steps of stepDays
// and returns every window whose train period is fully covered by data, in
// chronological order. The latest window is the same as SplitTrainTest.
// stepDays <= 0 means testDays.
func RollingWindows(candles []market.Candle, trainDays, testDays, stepDays int) ([]Split, error) {
	latest, err := SplitTrainTest(candles, trainDays, testDays)
	if err != nil {
		return nil, err
	}
	if stepDays <= 0 {
		stepDays = testDays
	}
	if stepDays < testDays {
		return nil, fmt.Errorf("step %d days overlaps %d day test windows", stepDays, testDays)
	}

	first := candles[0].Time
	out := []Split{latest}
	for k := 1; ; k++ {
		end := latest.End.Add(-time.Duration(k*stepDays) * day)
		s := window(candles, end, end, trainDays, testDays)
		if s.TrainStart.Before(first) {
			break
		}
		if len(s.Train) == 0 || len(s.Test) == 0 {
			continue
		}
		out = append(out, s)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// window cuts train [end-(train+test), end-test) and test [end-test, upto).
func window(candles []market.Candle, end, upto time.Time, trainDays, testDays int) Split {
	testStart := end.Add(-time.Duration(testDays) * day)
	trainStart := testStart.Add(-time.Duration(trainDays) * day)
	return Split{
		Train:      market.Between(candles, trainStart, testStart),
		Test:       market.Between(candles, testStart, upto),
		TrainStart: trainStart,
		TestStart:  testStart,
		End:        end,
	}
}
