package backtest

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/gridtrader/sim"
	"github.com/rustyeddy/gridtrader/strategies"
)

func TestPrintTop(t *testing.T) {
	t.Parallel()

	rows := []Result{
		{TestID: 4, Symbol: "BTCUSDT", Interval: "5", Params: strategies.Params{{Name: "short_ma", Value: 5}}, TestFinalBalance: 10012.5},
		{TestID: 9, Symbol: "BTCUSDT", Interval: "5", TestFinalBalance: 9990},
	}

	var buf bytes.Buffer
	PrintTop(&buf, rows, 1)
	out := buf.String()
	assert.Contains(t, out, "Top 1 configs")
	assert.Contains(t, out, "10012.50")
	assert.Contains(t, out, "short_ma=5")
	assert.NotContains(t, out, "#9")

	buf.Reset()
	PrintTop(&buf, rows, 0)
	assert.Contains(t, buf.String(), "Top 2 configs")
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintReport(&buf, Report{Total: 10, Completed: 8, Failed: 2, Errors: []error{errors.New("combination 3 failed")}}, 1500*time.Millisecond)
	assert.Contains(t, buf.String(), "completed: 8")
	assert.Contains(t, buf.String(), "combination 3 failed")
	assert.Contains(t, buf.String(), "1.5s")
}

func TestPrintSplitResult(t *testing.T) {
	t.Parallel()

	res := SplitResult{
		FinalBalance: 10010,
		Trades:       []sim.Trade{{NetPnL: 12}, {NetPnL: -2}},
		Signals:      4,
		Summary:      sim.Summary{MaxDrawdownPct: 0.02},
	}

	var buf bytes.Buffer
	PrintSplitResult(&buf, "BTCUSDT 5m ma-cross", 10000, res)
	out := buf.String()
	assert.Contains(t, out, "BTCUSDT 5m ma-cross")
	assert.Contains(t, out, "Win Rate:      50.00%")
	assert.Contains(t, out, "Net P/L:       10.00")
	assert.Contains(t, out, "Return:        0.10%")
}
