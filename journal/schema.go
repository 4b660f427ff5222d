package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	gross_pl REAL NOT NULL,
	fee REAL NOT NULL,
	slippage REAL NOT NULL,
	realized_pl REAL NOT NULL,
	balance_after REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL DEFAULT '',
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	available REAL NOT NULL,
	open_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL,
	test_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	params TEXT NOT NULL,
	train_final_balance REAL NOT NULL,
	test_final_balance REAL NOT NULL,
	train_total_trades INTEGER NOT NULL,
	test_total_trades INTEGER NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	win_rate_pct REAL NOT NULL,
	PRIMARY KEY (run_id, symbol, interval, test_id)
);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	mode TEXT NOT NULL,
	symbols TEXT NOT NULL,
	intervals TEXT NOT NULL,
	start_balance REAL NOT NULL,
	combinations INTEGER NOT NULL,
	completed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	skipped_pairs INTEGER NOT NULL
);
`
