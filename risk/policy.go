// Package risk sizes new positions from the account's available balance.
package risk

import (
	"fmt"
	"strings"
)

type Mode string

const (
	// Fixed spends the same notional on every open.
	Fixed Mode = "fixed"
	// Percent spends a fraction of the available balance at open time.
	Percent Mode = "percent"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Fixed, Percent:
		return m, nil
	case "":
		return Fixed, nil
	default:
		return "", fmt.Errorf("unknown sizing mode %q (want fixed or percent)", s)
	}
}

// Policy is fixed for the lifetime of a run.
type Policy struct {
	Mode        Mode
	FixedAmount float64 // notional per trade in Fixed mode
	RiskPct     float64 // 0.01 = 1% of available in Percent mode
}

func (p Policy) Validate() error {
	switch p.Mode {
	case Fixed:
		if p.FixedAmount <= 0 {
			return fmt.Errorf("sizing.fixed_amount must be positive")
		}
	case Percent:
		if p.RiskPct <= 0 || p.RiskPct > 1 {
			return fmt.Errorf("sizing.risk_pct must be in (0, 1]")
		}
	default:
		return fmt.Errorf("unknown sizing mode %q", p.Mode)
	}
	return nil
}

// Notional is the amount of balance a new position would tie up.
func (p Policy) Notional(available float64) float64 {
	if p.Mode == Percent {
		return available * p.RiskPct
	}
	return p.FixedAmount
}
