package journal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block suitable for pasting into a journal.
// Structured facts go in a PROPERTIES drawer; the Review heading is left for notes.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.Symbol, t.Direction, shortID(t.TradeID))
	open := t.OpenTime.UTC().Format(time.RFC3339)
	close := t.CloseTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.TradeID))
	if t.RunID != "" {
		b.WriteString(fmt.Sprintf(":RUN_ID: %s\n", t.RunID))
	}
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", t.Symbol))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", t.Direction))
	b.WriteString(fmt.Sprintf(":QUANTITY: %.6f\n", t.Quantity))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.5f\n", t.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.5f\n", t.ExitPrice))
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", open))
	b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", close))
	b.WriteString(fmt.Sprintf(":FEE: %.4f\n", t.Fee))
	b.WriteString(fmt.Sprintf(":SLIPPAGE: %.4f\n", t.Slippage))
	b.WriteString(fmt.Sprintf(":REALIZED_PL: %.2f\n", t.RealizedPL))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", t.Reason))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

// BacktestRun is the header of an optimizer run, mirrored in the
// backtest_runs table.
type BacktestRun struct {
	RunID     string
	Created   time.Time
	Strategy  string
	Mode      string
	Symbols   []string
	Intervals []string

	StartBalance float64

	Combinations int
	Completed    int
	Failed       int
	SkippedPairs int

	Top []ResultRecord

	Notes []string
}

var backtestOrgFuncs = template.FuncMap{
	"join": strings.Join,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// Org renders the run as an Org-mode document.
func (v BacktestRun) Org() (string, error) {
	buf := new(bytes.Buffer)
	if err := backtestOrg.Execute(buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (v BacktestRun) WriteOrg(path string) error {
	s, err := v.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}

const BacktestOrgTemplate = `* OPTIMIZE: {{.Strategy}} {{join .Symbols " "}}
:PROPERTIES:
:RUN_ID:       {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:     {{.Strategy}}
:MODE:         {{.Mode}}
:SYMBOLS:      {{join .Symbols ","}}
:INTERVALS:    {{join .Intervals ","}}
:START_BAL:    {{printf "%.2f" .StartBalance}}
:COMBINATIONS: {{.Combinations}}
:COMPLETED:    {{.Completed}}
:FAILED:       {{.Failed}}
:SKIPPED:      {{.SkippedPairs}}
:CREATED:      [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Top Results
| # | Symbol | Interval | Params | Train Bal | Test Bal | Trades | Max DD % | Win % |
|---+--------+----------+--------+-----------+----------+--------+----------+-------|
{{- range .Top }}
| {{.TestID}} | {{.Symbol}} | {{.Interval}} | {{.Params}} | {{printf "%.2f" .TrainFinalBalance}} | {{printf "%.2f" .TestFinalBalance}} | {{.TestTrades}} | {{printf "%.2f" .MaxDrawdownPct}} | {{printf "%.2f" .WinRatePct}} |
{{- end }}
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
