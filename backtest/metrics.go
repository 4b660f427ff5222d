package backtest

import (
	"slices"

	"github.com/rustyeddy/gridtrader/sim"
)

// WinRate is the fraction of trades with positive net P&L. No trades is 0.
func WinRate(trades []sim.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Win() {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// MaxDrawdown is the largest peak-to-trough fall of cumulative net P&L,
// in account currency.
func MaxDrawdown(trades []sim.Trade) float64 {
	var equity, peak, dd float64
	for _, t := range trades {
		equity += t.NetPnL
		if equity > peak {
			peak = equity
		}
		if d := peak - equity; d > dd {
			dd = d
		}
	}
	return dd
}

// MaxDrawdownPct is the largest fall from a balance peak, in percent of
// that peak, for an account starting at start.
func MaxDrawdownPct(trades []sim.Trade, start float64) float64 {
	balance, peak := start, start
	dd := 0.0
	for _, t := range trades {
		balance += t.NetPnL
		if balance > peak {
			peak = balance
			continue
		}
		if peak > 0 {
			if d := (peak - balance) / peak; d > dd {
				dd = d
			}
		}
	}
	return dd * 100
}

// EquityFromTrades rebuilds a balance curve with one point per trade exit.
func EquityFromTrades(trades []sim.Trade, start float64) []sim.EquityPoint {
	sorted := slices.Clone(trades)
	slices.SortStableFunc(sorted, func(a, b sim.Trade) int {
		return a.ExitTime.Compare(b.ExitTime)
	})

	out := make([]sim.EquityPoint, 0, len(sorted))
	balance := start
	for _, t := range sorted {
		balance += t.NetPnL
		out = append(out, sim.EquityPoint{Time: t.ExitTime, Balance: balance})
	}
	return out
}
