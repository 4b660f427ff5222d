package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	tradeColumns  = []string{"run_id", "trade_id", "symbol", "direction", "quantity", "entry_price", "exit_price", "open_time", "close_time", "gross_pl", "fee", "slippage", "realized_pl", "balance_after", "reason"}
	equityColumns = []string{"run_id", "time", "balance", "available", "open_positions"}
)

type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write(tradeColumns); err != nil {
		return nil, err
	}
	if err := ew.Write(equityColumns); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, ew, tf, ef}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.RunID,
		t.TradeID,
		t.Symbol,
		t.Direction,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		f(t.GrossPL),
		f(t.Fee),
		f(t.Slippage),
		f(t.RealizedPL),
		f(t.BalanceAfter),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.RunID,
		e.Time.Format(time.RFC3339),
		f(e.Balance),
		f(e.Available),
		strconv.Itoa(e.OpenPositions),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
