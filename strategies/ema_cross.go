package strategies

import (
	"fmt"

	"github.com/rustyeddy/gridtrader/indicators"
	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/sim"
)

// EMACross trades a fast/slow EMA crossover in both directions.
//   - Enters only on cross
//   - Reverses on opposite cross (close then open)
//   - Stop is StopPct from entry, take-profit is StopPct*RR on the other side
//   - TrailingPct > 0 attaches a trailing take-profit instead
type EMACross struct {
	signals

	symbol  string
	candles []market.Candle

	FastPeriod  int
	SlowPeriod  int
	StopPct     float64
	RR          float64
	TrailingPct float64
}

func emaCrossFactory() Factory {
	return gridFactory{
		name: "ema-cross",
		grid: Grid{
			{"fast_period", ints(10, 20)},
			{"slow_period", ints(30, 50)},
			{"stop_pct", floats(0.01)},
			{"rr", floats(2.0)},
			{"trailing_pct", floats(0, 0.01)},
		},
		valid: shortBelowLong("fast_period", "slow_period"),
		build: func(symbol, _ string, candles []market.Candle, p Params) (Strategy, error) {
			s := &EMACross{symbol: symbol, candles: candles}
			var err error
			if s.FastPeriod, err = p.Int("fast_period"); err != nil {
				return nil, err
			}
			if s.SlowPeriod, err = p.Int("slow_period"); err != nil {
				return nil, err
			}
			if s.StopPct, err = p.Float("stop_pct"); err != nil {
				return nil, err
			}
			if s.RR, err = p.Float("rr"); err != nil {
				return nil, err
			}
			if s.TrailingPct, err = p.Float("trailing_pct"); err != nil {
				return nil, err
			}
			if s.StopPct <= 0 || s.StopPct >= 1 {
				return nil, fmt.Errorf("stop_pct %v out of range", s.StopPct)
			}
			if s.RR <= 0 {
				s.RR = 2.0
			}
			return s, nil
		},
	}
}

func (s *EMACross) Run() error {
	s.events = s.events[:0]

	fast := indicators.NewEMA(s.FastPeriod)
	slow := indicators.NewEMA(s.SlowPeriod)

	var (
		lastDiff     float64
		haveLastDiff bool
		open         sim.Direction // "" when flat
	)

	for _, c := range s.candles {
		fast.Update(c)
		slow.Update(c)

		// Wait until both EMAs are warmed up.
		if !fast.Ready() || !slow.Ready() {
			continue
		}

		diff := fast.Value() - slow.Value()
		if !haveLastDiff {
			lastDiff = diff
			haveLastDiff = true
			continue
		}

		// Bull cross: diff goes from <=0 to >0
		// Bear cross: diff goes from >=0 to <0
		bullCross := diff > 0 && lastDiff <= 0
		bearCross := diff < 0 && lastDiff >= 0
		lastDiff = diff

		var dir sim.Direction
		switch {
		case bullCross:
			dir = sim.Long
		case bearCross:
			dir = sim.Short
		default:
			continue
		}
		if open == dir {
			continue
		}
		if open != "" {
			s.emit(sim.Close(c.Time, s.symbol, c.Close))
		}
		s.emit(s.entry(c, dir))
		open = dir
	}
	return nil
}

func (s *EMACross) entry(c market.Candle, dir sim.Direction) sim.Event {
	entry := c.Close
	sign := 1.0
	if dir == sim.Short {
		sign = -1.0
	}

	stop := entry * (1 - sign*s.StopPct)
	opts := []sim.OpenOption{sim.WithStopLoss(stop)}
	if s.TrailingPct > 0 {
		opts = append(opts, sim.WithTrailing(s.TrailingPct))
	} else {
		opts = append(opts, sim.WithTakeProfit(entry*(1+sign*s.StopPct*s.RR)))
	}
	return sim.Open(c.Time, s.symbol, dir, entry, opts...)
}
