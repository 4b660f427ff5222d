package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/sim"
	"github.com/rustyeddy/gridtrader/strategies"
)

// Result is one optimizer row.
type Result struct {
	TestID   int
	Symbol   string
	Interval string
	Params   strategies.Params

	TrainFinalBalance float64
	TestFinalBalance  float64
	TrainTrades       int
	TestTrades        int
	WinRatePct        float64
	MaxDrawdownPct    float64

	// Set in walk-forward and rolling modes only.
	TrainEquity []sim.EquityPoint
	TestEquity  []sim.EquityPoint
}

// Record converts the row for export.
func (r Result) Record() journal.ResultRecord {
	return journal.ResultRecord{
		TestID:            r.TestID,
		Symbol:            r.Symbol,
		Interval:          r.Interval,
		ParamNames:        r.Params.Names(),
		ParamValues:       r.Params.Values(),
		TrainFinalBalance: r.TrainFinalBalance,
		TestFinalBalance:  r.TestFinalBalance,
		TrainTrades:       r.TrainTrades,
		TestTrades:        r.TestTrades,
		MaxDrawdownPct:    r.MaxDrawdownPct,
		WinRatePct:        r.WinRatePct,
	}
}

// Records converts rows for export, keeping their order.
func Records(rows []Result) []journal.ResultRecord {
	out := make([]journal.ResultRecord, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}

func PrintSplitResult(w io.Writer, title string, start float64, r SplitResult) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " %s\n", title)
	fmt.Fprintln(w, "==================================================")

	wins := 0
	for _, t := range r.Trades {
		if t.Win() {
			wins++
		}
	}
	net := r.FinalBalance - start

	fmt.Fprintf(w, "Signals:       %d\n", r.Signals)
	fmt.Fprintf(w, "Trades:        %d\n", len(r.Trades))
	fmt.Fprintf(w, "Wins:          %d\n", wins)
	fmt.Fprintf(w, "Losses:        %d\n", len(r.Trades)-wins)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", WinRate(r.Trades)*100)
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:       %d\n", r.Skipped)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %.2f\n", start)
	fmt.Fprintf(w, "End Balance:   %.2f\n", r.FinalBalance)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", net)
	if start > 0 {
		fmt.Fprintf(w, "Return:        %.2f%%\n", net/start*100)
	}
	if r.Summary.MaxDrawdownPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.Summary.MaxDrawdownPct)
	}
	fmt.Fprintln(w)
}

// PrintTop writes the first n rows as a table.
func PrintTop(w io.Writer, rows []Result, n int) {
	if n > len(rows) || n <= 0 {
		n = len(rows)
	}
	fmt.Fprintf(w, "Top %d configs by test final balance:\n", n)
	for _, r := range rows[:n] {
		fmt.Fprintf(w, "#%-4d %-10s %4sm  train=%10.2f  test=%10.2f  trades=%d/%d  win=%6.2f%%  dd=%6.2f%%  %s\n",
			r.TestID, r.Symbol, r.Interval,
			r.TrainFinalBalance, r.TestFinalBalance,
			r.TrainTrades, r.TestTrades,
			r.WinRatePct, r.MaxDrawdownPct,
			r.Params,
		)
	}
}

func PrintReport(w io.Writer, rep Report, elapsed time.Duration) {
	fmt.Fprintf(w, "combinations: %d  completed: %d  failed: %d  skipped pairs: %d  (%s)\n",
		rep.Total, rep.Completed, rep.Failed, rep.SkippedPairs, elapsed.Round(time.Millisecond))
	for _, err := range rep.Errors {
		fmt.Fprintf(w, "  - %v\n", err)
	}
}
