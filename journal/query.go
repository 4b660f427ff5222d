package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const tradeSelect = `
	SELECT trade_id, run_id, symbol, direction, quantity, entry_price, exit_price, open_time, close_time,
	       gross_pl, fee, slippage, realized_pl, balance_after, reason
	FROM trades`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.RunID,
		&rec.Symbol,
		&rec.Direction,
		&rec.Quantity,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.GrossPL,
		&rec.Fee,
		&rec.Slippage,
		&rec.RealizedPL,
		&rec.BalanceAfter,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	rec, err := scanTrade(j.db.QueryRow(tradeSelect+` WHERE trade_id = ?`, tradeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(tradeSelect+`
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, tradeSelect+`
		WHERE run_id = ?
		ORDER BY close_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity samples with time in [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, balance, available, open_positions
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return collectEquity(rows)
}

func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, balance, available, open_positions
		FROM equity
		WHERE run_id = ?
		ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	return collectEquity(rows)
}

func collectEquity(rows *sql.Rows) ([]EquitySnapshot, error) {
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Balance, &e.Available, &e.OpenPositions); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListResultsByRunID returns stored optimizer rows, best test balance
// first. limit <= 0 returns all rows. Params come back as a single
// "k=v" column.
func (j *SQLite) ListResultsByRunID(ctx context.Context, runID string, limit int) ([]ResultRecord, error) {
	q := `
		SELECT test_id, symbol, interval, params, train_final_balance, test_final_balance,
		       train_total_trades, test_total_trades, max_drawdown_pct, win_rate_pct
		FROM results
		WHERE run_id = ?
		ORDER BY test_final_balance DESC, symbol ASC, interval ASC, test_id ASC`
	args := []any{runID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var (
			r      ResultRecord
			params string
		)
		if err := rows.Scan(
			&r.TestID, &r.Symbol, &r.Interval, &params,
			&r.TrainFinalBalance, &r.TestFinalBalance, &r.TrainTrades, &r.TestTrades,
			&r.MaxDrawdownPct, &r.WinRatePct,
		); err != nil {
			return nil, err
		}
		r.ParamNames, r.ParamValues = splitParams(params)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	var (
		run                BacktestRun
		symbols, intervals string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, strategy, mode, symbols, intervals, start_balance,
		       combinations, completed, failed, skipped_pairs
		FROM backtest_runs
		WHERE run_id = ?`, runID).Scan(
		&run.RunID, &run.Created, &run.Strategy, &run.Mode, &symbols, &intervals,
		&run.StartBalance, &run.Combinations, &run.Completed, &run.Failed, &run.SkippedPairs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BacktestRun{}, fmt.Errorf("backtest run %q not found", runID)
		}
		return BacktestRun{}, err
	}
	run.Symbols = splitList(symbols)
	run.Intervals = splitList(intervals)
	return run, nil
}

func splitParams(s string) (names, values []string) {
	for _, kv := range strings.Fields(s) {
		k, v, _ := strings.Cut(kv, "=")
		names = append(names, k)
		values = append(values, v)
	}
	return names, values
}

func joinList(xs []string) string { return strings.Join(xs, ",") }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
