package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ResultRecord is one optimizer row: a parameter set scored on its train
// and test windows. ParamNames and ParamValues are parallel and keep the
// strategy grid's key order.
type ResultRecord struct {
	TestID      int
	Symbol      string
	Interval    string
	ParamNames  []string
	ParamValues []string

	TrainFinalBalance float64
	TestFinalBalance  float64
	TrainTrades       int
	TestTrades        int
	MaxDrawdownPct    float64
	WinRatePct        float64
}

// Params renders the parameter set as "k=v k=v".
func (r ResultRecord) Params() string {
	pairs := make([]string, len(r.ParamNames))
	for i, name := range r.ParamNames {
		v := ""
		if i < len(r.ParamValues) {
			v = r.ParamValues[i]
		}
		pairs[i] = name + "=" + v
	}
	return strings.Join(pairs, " ")
}

// ResultHeader returns the CSV header for rows with the given parameter names.
func ResultHeader(paramNames []string) []string {
	h := []string{"test_id", "symbol", "interval"}
	h = append(h, paramNames...)
	return append(h,
		"train_final_balance",
		"test_final_balance",
		"train_total_trades",
		"test_total_trades",
		"max_drawdown_pct",
		"win_rate_pct",
	)
}

// WriteResultsCSV writes rows in the order given. Money and percent columns
// are rounded to two decimals.
func WriteResultsCSV(w io.Writer, rows []ResultRecord) error {
	var names []string
	if len(rows) > 0 {
		names = rows[0].ParamNames
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ResultHeader(names)); err != nil {
		return err
	}
	for _, r := range rows {
		if len(r.ParamValues) != len(names) {
			return fmt.Errorf("result %d: %d params, header has %d", r.TestID, len(r.ParamValues), len(names))
		}
		rec := []string{strconv.Itoa(r.TestID), r.Symbol, r.Interval}
		rec = append(rec, r.ParamValues...)
		rec = append(rec,
			round2(r.TrainFinalBalance),
			round2(r.TestFinalBalance),
			strconv.Itoa(r.TrainTrades),
			strconv.Itoa(r.TestTrades),
			round2(r.MaxDrawdownPct),
			round2(r.WinRatePct),
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TopN returns the n rows with the highest test balance. Ties keep their
// input order. n <= 0 returns nil.
func TopN(rows []ResultRecord, n int) []ResultRecord {
	if n <= 0 {
		return nil
	}
	sorted := make([]ResultRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TestFinalBalance > sorted[j].TestFinalBalance
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

func SaveResults(path string, rows []ResultRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteResultsCSV(fh, rows); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return fh.Close()
}

func SaveTopResults(path string, rows []ResultRecord, n int) error {
	return SaveResults(path, TopN(rows, n))
}

func round2(x float64) string {
	return decimal.NewFromFloat(x).Round(2).StringFixed(2)
}
