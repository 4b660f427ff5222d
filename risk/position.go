package risk

// Quantity converts a notional into units at price. Fractional units are
// allowed; crypto spot trades in arbitrary precision.
func Quantity(notional, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return notional / price
}
