package backtest

import (
	"cmp"
	"slices"

	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/sim"
)

// EventFeed yields engine events one at a time.
// Implementations should be deterministic and return (ok=false, err=nil) at EOF.
type EventFeed interface {
	Next() (ev sim.Event, ok bool, err error)
	Close() error
}

// SliceFeed replays an in-memory event list.
type SliceFeed struct {
	events []sim.Event
	i      int
}

func NewSliceFeed(events []sim.Event) *SliceFeed {
	return &SliceFeed{events: events}
}

func (f *SliceFeed) Next() (sim.Event, bool, error) {
	if f.i >= len(f.events) {
		return sim.Event{}, false, nil
	}
	ev := f.events[f.i]
	f.i++
	return ev, true, nil
}

func (f *SliceFeed) Close() error { return nil }

// PriceUpdates turns every candle close into a price update for symbol.
func PriceUpdates(candles []market.Candle, symbol string) []sim.Event {
	out := make([]sim.Event, len(candles))
	for i, c := range candles {
		out[i] = sim.PriceUpdate(c.Time, symbol, c.Close)
	}
	return out
}

// MergeEvents combines strategy signals with per-candle price updates,
// ordered by time. On equal timestamps signals come first; otherwise input
// order is kept.
func MergeEvents(signals []sim.Event, candles []market.Candle, symbol string) []sim.Event {
	out := make([]sim.Event, 0, len(signals)+len(candles))
	out = append(out, signals...)
	out = append(out, PriceUpdates(candles, symbol)...)

	slices.SortStableFunc(out, func(a, b sim.Event) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return cmp.Compare(rank(a), rank(b))
	})
	return out
}

func rank(ev sim.Event) int {
	if ev.Kind == sim.KindPriceUpdate {
		return 1
	}
	return 0
}
