// Package indicators provides technical analysis indicators for trading
package indicators

import "github.com/rustyeddy/gridtrader/market"

// Indicator computes a single streaming value from candles.
// It is deterministic and safe to use in backtests and optimizer sweeps.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value, or 0 before Ready().
	Value() float64
}
