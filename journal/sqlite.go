package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, symbol, direction, quantity, entry_price, exit_price, open_time, close_time,
		 gross_pl, fee, slippage, realized_pl, balance_after, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Symbol, t.Direction, t.Quantity, t.EntryPrice, t.ExitPrice,
		t.OpenTime, t.CloseTime, t.GrossPL, t.Fee, t.Slippage, t.RealizedPL, t.BalanceAfter, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, balance, available, open_positions)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.Balance, e.Available, e.OpenPositions,
	)
	return err
}

// RecordResults stores optimizer rows under runID in one transaction.
func (j *SQLite) RecordResults(runID string, rows []ResultRecord) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO results
		(run_id, test_id, symbol, interval, params, train_final_balance, test_final_balance,
		 train_total_trades, test_total_trades, max_drawdown_pct, win_rate_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(
			runID, r.TestID, r.Symbol, r.Interval, r.Params(),
			r.TrainFinalBalance, r.TestFinalBalance, r.TrainTrades, r.TestTrades,
			r.MaxDrawdownPct, r.WinRatePct,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record result %d: %w", r.TestID, err)
		}
	}
	return tx.Commit()
}

// RecordBacktest stores the run header shown in the Org report.
func (j *SQLite) RecordBacktest(ctx context.Context, run BacktestRun) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, strategy, mode, symbols, intervals, start_balance,
		 combinations, completed, failed, skipped_pairs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Created, run.Strategy, run.Mode, joinList(run.Symbols), joinList(run.Intervals),
		run.StartBalance, run.Combinations, run.Completed, run.Failed, run.SkippedPairs,
	)
	return err
}

// ExportBacktestOrg loads a run with its results and renders the Org report.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string, topN int) (string, error) {
	run, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	run.Top, err = j.ListResultsByRunID(ctx, runID, topN)
	if err != nil {
		return "", err
	}
	return run.Org()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
