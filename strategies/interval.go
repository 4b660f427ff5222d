package strategies

import (
	"fmt"

	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/sim"
)

// Interval opens every EntryInterval candles, alternating long and short,
// and closes ExitOffset candles later. It has no edge; it exercises the
// engine and optimizer with a predictable trade count.
type Interval struct {
	signals

	symbol  string
	candles []market.Candle

	EntryInterval int
	ExitOffset    int
}

func intervalFactory() Factory {
	return gridFactory{
		name: "interval",
		grid: Grid{
			{"entry_interval", ints(5, 10, 15)},
			{"exit_offset", ints(3, 5, 7)},
		},
		build: func(symbol, _ string, candles []market.Candle, p Params) (Strategy, error) {
			s := &Interval{symbol: symbol, candles: candles}
			var err error
			if s.EntryInterval, err = p.Int("entry_interval"); err != nil {
				return nil, err
			}
			if s.ExitOffset, err = p.Int("exit_offset"); err != nil {
				return nil, err
			}
			if s.EntryInterval <= 0 || s.ExitOffset <= 0 {
				return nil, fmt.Errorf("entry_interval and exit_offset must be positive")
			}
			return s, nil
		},
	}
}

func (s *Interval) Run() error {
	s.events = s.events[:0]

	dirs := [2]sim.Direction{sim.Long, sim.Short}
	n := 0
	for i := 0; i < len(s.candles)-s.ExitOffset; i += s.EntryInterval {
		entry := s.candles[i]
		exit := s.candles[i+s.ExitOffset]

		s.emit(sim.Open(entry.Time, s.symbol, dirs[n%2], entry.Close))
		s.emit(sim.Close(exit.Time, s.symbol, exit.Close))
		n++
	}

	// Exits can land after later entries; keep output in time order.
	sortEvents(s.events)
	return nil
}
