package sim

import "time"

// Position is an open exposure in one symbol. The engine owns it; a
// position leaves the engine's map when it closes and is never reopened.
type Position struct {
	Symbol     string
	Direction  Direction
	EntryTime  time.Time
	EntryPrice float64
	Quantity   float64
	Notional   float64

	TakeProfit     *float64
	StopLoss       *float64
	Trailing       *Trailing
	TrailingActive bool
}

// ShouldExit observes price and reports whether the position's take-profit
// or stop-loss fired. The exit price is the trigger level, not the observed
// price. Take-profit is checked first. Trailing positions move their
// take-profit before the check.
func (p *Position) ShouldExit(price float64) (bool, float64, string) {
	if p.Trailing != nil {
		p.updateTrailing(price)
	}

	if p.Direction == Long {
		if p.TakeProfit != nil && price >= *p.TakeProfit {
			return true, *p.TakeProfit, ReasonTakeProfit
		}
		if p.StopLoss != nil && price <= *p.StopLoss {
			return true, *p.StopLoss, ReasonStopLoss
		}
		return false, 0, ""
	}

	if p.TakeProfit != nil && price <= *p.TakeProfit {
		return true, *p.TakeProfit, ReasonTakeProfit
	}
	if p.StopLoss != nil && price >= *p.StopLoss {
		return true, *p.StopLoss, ReasonStopLoss
	}
	return false, 0, ""
}

// updateTrailing seeds the take-profit on the first observation and after
// that only moves it in the position's favor.
func (p *Position) updateTrailing(price float64) {
	pct := p.Trailing.Pct

	if p.Direction == Long {
		candidate := price * (1 + pct)
		switch {
		case !p.TrailingActive:
			p.TakeProfit = &candidate
			p.TrailingActive = true
		case price > p.EntryPrice && (p.TakeProfit == nil || candidate > *p.TakeProfit):
			p.TakeProfit = &candidate
		}
		return
	}

	candidate := price * (1 - pct)
	switch {
	case !p.TrailingActive:
		p.TakeProfit = &candidate
		p.TrailingActive = true
	case price < p.EntryPrice && (p.TakeProfit == nil || candidate < *p.TakeProfit):
		p.TakeProfit = &candidate
	}
}
