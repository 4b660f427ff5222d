package sim

import "time"

// Close reasons.
const (
	ReasonTakeProfit = "TakeProfit"
	ReasonStopLoss   = "StopLoss"
	ReasonSignal     = "Signal"
	ReasonEndOfRun   = "EndOfRun"
)

// Trade is a closed position. Trades are appended to the ledger and never
// modified.
type Trade struct {
	ID         string
	Symbol     string
	Direction  Direction
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	Quantity   float64

	GrossPnL     float64
	Fee          float64
	Slippage     float64
	NetPnL       float64
	BalanceAfter float64
	Reason       string
}

func (t Trade) Win() bool { return t.NetPnL > 0 }

type EquityPoint struct {
	Time    time.Time
	Balance float64
}

// CostModel charges fee and slippage as a fraction of entry plus exit value.
type CostModel struct {
	FeePct      float64
	SlippagePct float64
}

// Apply returns the P&L breakdown of a round trip.
func (c CostModel) Apply(dir Direction, entry, exit, qty float64) (gross, fee, slippage, net float64) {
	if dir == Long {
		gross = (exit - entry) * qty
	} else {
		gross = (entry - exit) * qty
	}
	turnover := (entry + exit) * qty
	fee = turnover * c.FeePct
	slippage = turnover * c.SlippagePct
	net = gross - fee - slippage
	return gross, fee, slippage, net
}
