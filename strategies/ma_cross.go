package strategies

import (
	"math"

	"github.com/rustyeddy/gridtrader/indicators"
	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/sim"
)

// Fixed exit bracket for the long-only strategies.
const (
	bracketTP = 1.02
	bracketSL = 0.98
)

// MACross goes long when the short SMA crosses above the long SMA and
// closes on the opposite cross. With the RSI filter enabled an entry is
// skipped unless RSI is at or below the oversold level.
type MACross struct {
	signals

	symbol  string
	candles []market.Candle

	Short, Long   int
	UseRSI        bool
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
}

func maCrossFactory() Factory {
	return gridFactory{
		name: "ma-cross",
		grid: Grid{
			{"short_ma", ints(5, 10, 20)},
			{"long_ma", ints(30, 50, 100)},
			{"use_rsi_filter", bools(true, false)},
			{"rsi_period", ints(14)},
			{"rsi_oversold", ints(30)},
			{"rsi_overbought", ints(70)},
		},
		valid: shortBelowLong("short_ma", "long_ma"),
		build: func(symbol, _ string, candles []market.Candle, p Params) (Strategy, error) {
			s := &MACross{symbol: symbol, candles: candles}
			var err error
			if s.Short, err = p.Int("short_ma"); err != nil {
				return nil, err
			}
			if s.Long, err = p.Int("long_ma"); err != nil {
				return nil, err
			}
			if s.UseRSI, err = p.Bool("use_rsi_filter"); err != nil {
				return nil, err
			}
			if s.RSIPeriod, err = p.Int("rsi_period"); err != nil {
				return nil, err
			}
			if s.RSIOversold, err = p.Float("rsi_oversold"); err != nil {
				return nil, err
			}
			if s.RSIOverbought, err = p.Float("rsi_overbought"); err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

func (s *MACross) Run() error {
	s.events = s.events[:0]

	closes := market.Closes(s.candles)
	short := indicators.SMASeries(closes, s.Short)
	long := indicators.SMASeries(closes, s.Long)

	var rsi []float64
	if s.UseRSI {
		rsi = indicators.RSISeries(closes, s.RSIPeriod)
	}

	inPosition := false
	for i := 1; i < len(s.candles); i++ {
		if math.IsNaN(short[i]) || math.IsNaN(long[i]) {
			continue
		}
		c := s.candles[i]

		if !inPosition {
			if !(short[i-1] < long[i-1] && short[i] > long[i]) {
				continue
			}
			if s.UseRSI && !math.IsNaN(rsi[i]) && rsi[i] > s.RSIOversold {
				continue
			}
			s.emit(sim.Open(c.Time, s.symbol, sim.Long, c.Close,
				sim.WithTakeProfit(c.Close*bracketTP),
				sim.WithStopLoss(c.Close*bracketSL),
			))
			inPosition = true
			continue
		}

		if short[i-1] > long[i-1] && short[i] < long[i] {
			s.emit(sim.Close(c.Time, s.symbol, c.Close))
			inPosition = false
		}
	}
	return nil
}

func shortBelowLong(short, long string) func(Params) bool {
	return func(p Params) bool {
		s, err := p.Int(short)
		if err != nil {
			return false
		}
		l, err := p.Int(long)
		if err != nil {
			return false
		}
		return s > 0 && s < l
	}
}
