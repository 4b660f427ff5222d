// Package journal records closed trades, equity samples and optimizer
// results to CSV files or an SQLite database.
package journal

import "time"

// TradeRecord is the journaled form of a closed trade.
type TradeRecord struct {
	RunID     string
	TradeID   string
	Symbol    string
	Direction string
	Quantity  float64

	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time

	GrossPL      float64
	Fee          float64
	Slippage     float64
	RealizedPL   float64 // net of fee and slippage
	BalanceAfter float64
	Reason       string
}

// EquitySnapshot is one point of the engine's equity curve.
type EquitySnapshot struct {
	RunID         string
	Time          time.Time
	Balance       float64
	Available     float64
	OpenPositions int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything. It is the engine default.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
