package sim

import (
	"fmt"
	"math"
	"time"
)

type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Long, Short:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

type Kind int

const (
	KindOpen Kind = iota + 1
	KindClose
	KindPriceUpdate
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	case KindPriceUpdate:
		return "price_update"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Trailing moves the take-profit with price. Pct is a fraction, 0.02 = 2%.
type Trailing struct {
	Pct float64
}

// Event is the single input type of the engine. Build it with Open, Close
// or PriceUpdate; only open events use Direction and the exit levels.
type Event struct {
	Kind   Kind
	Time   time.Time
	Symbol string
	Price  float64

	Direction  Direction
	TakeProfit *float64
	StopLoss   *float64
	Trailing   *Trailing
}

type OpenOption func(*Event)

func WithTakeProfit(price float64) OpenOption {
	return func(e *Event) { e.TakeProfit = &price }
}

func WithStopLoss(price float64) OpenOption {
	return func(e *Event) { e.StopLoss = &price }
}

func WithTrailing(pct float64) OpenOption {
	return func(e *Event) { e.Trailing = &Trailing{Pct: pct} }
}

// Open requests a new position at price.
func Open(t time.Time, symbol string, dir Direction, price float64, opts ...OpenOption) Event {
	e := Event{
		Kind:      KindOpen,
		Time:      t,
		Symbol:    symbol,
		Direction: dir,
		Price:     price,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Close requests the symbol's position be closed at price.
func Close(t time.Time, symbol string, price float64) Event {
	return Event{Kind: KindClose, Time: t, Symbol: symbol, Price: price}
}

// PriceUpdate reports an observed market price.
func PriceUpdate(t time.Time, symbol string, price float64) Event {
	return Event{Kind: KindPriceUpdate, Time: t, Symbol: symbol, Price: price}
}

// Validate reports ErrMalformedSignal for events the engine cannot act on.
func (e Event) Validate() error {
	if e.Symbol == "" {
		return fmt.Errorf("%s event: missing symbol: %w", e.Kind, ErrMalformedSignal)
	}
	if e.Time.IsZero() {
		return fmt.Errorf("%s %s: missing timestamp: %w", e.Kind, e.Symbol, ErrMalformedSignal)
	}
	if !validPrice(e.Price) {
		return fmt.Errorf("%s %s: price %v: %w", e.Kind, e.Symbol, e.Price, ErrMalformedSignal)
	}

	switch e.Kind {
	case KindClose, KindPriceUpdate:
		return nil
	case KindOpen:
	default:
		return fmt.Errorf("%s %s: %w", e.Kind, e.Symbol, ErrMalformedSignal)
	}

	if e.Direction != Long && e.Direction != Short {
		return fmt.Errorf("open %s: direction %q: %w", e.Symbol, e.Direction, ErrMalformedSignal)
	}
	if e.TakeProfit != nil && !validPrice(*e.TakeProfit) {
		return fmt.Errorf("open %s: take profit %v: %w", e.Symbol, *e.TakeProfit, ErrMalformedSignal)
	}
	if e.StopLoss != nil && !validPrice(*e.StopLoss) {
		return fmt.Errorf("open %s: stop loss %v: %w", e.Symbol, *e.StopLoss, ErrMalformedSignal)
	}
	if e.Trailing != nil && !(e.Trailing.Pct > 0 && e.Trailing.Pct < 1) {
		return fmt.Errorf("open %s: trailing pct %v: %w", e.Symbol, e.Trailing.Pct, ErrMalformedSignal)
	}
	return nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
