package risk

import (
	"fmt"
	"math"
)

type Violation struct {
	Code string
	Msg  string
}

// Intent describes a position the engine is about to open.
type Intent struct {
	Symbol    string
	Price     float64
	Available float64
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	Notional float64
	Quantity float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason joins the violation messages.
func (d Decision) Reason() string {
	s := ""
	for i, v := range d.Violations {
		if i > 0 {
			s += "; "
		}
		s += v.Code + ": " + v.Msg
	}
	return s
}

// Evaluate sizes intent under p and reports whether it can be opened.
func Evaluate(p Policy, intent Intent) Decision {
	d := Decision{Allowed: true}

	if intent.Price <= 0 || math.IsNaN(intent.Price) {
		d.add("BAD_PRICE", fmt.Sprintf("price %v must be positive", intent.Price))
		return d
	}

	d.Notional = p.Notional(intent.Available)
	if d.Notional <= 0 {
		d.add("NO_NOTIONAL", fmt.Sprintf("notional %.2f must be positive", d.Notional))
		return d
	}
	if d.Notional > intent.Available {
		d.add("INSUFFICIENT_BALANCE",
			fmt.Sprintf("notional %.2f exceeds available %.2f", d.Notional, intent.Available))
		return d
	}

	d.Quantity = Quantity(d.Notional, intent.Price)
	return d
}
