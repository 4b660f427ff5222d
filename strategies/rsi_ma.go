package strategies

import (
	"math"

	"github.com/rustyeddy/gridtrader/indicators"
	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/sim"
)

// RSIMA buys oversold dips that are still above their moving average and
// exits when RSI turns overbought or price loses the average.
type RSIMA struct {
	signals

	symbol  string
	candles []market.Candle

	RSIPeriod  int
	Overbought float64
	Oversold   float64
	MAPeriod   int
}

func rsiMAFactory() Factory {
	return gridFactory{
		name: "rsi-ma",
		grid: Grid{
			{"rsi_period", ints(14)},
			{"rsi_overbought", ints(70)},
			{"rsi_oversold", ints(30)},
			{"ma_period", ints(20, 50)},
		},
		valid: func(p Params) bool {
			over, err1 := p.Float("rsi_overbought")
			under, err2 := p.Float("rsi_oversold")
			return err1 == nil && err2 == nil && under < over
		},
		build: func(symbol, _ string, candles []market.Candle, p Params) (Strategy, error) {
			s := &RSIMA{symbol: symbol, candles: candles}
			var err error
			if s.RSIPeriod, err = p.Int("rsi_period"); err != nil {
				return nil, err
			}
			if s.Overbought, err = p.Float("rsi_overbought"); err != nil {
				return nil, err
			}
			if s.Oversold, err = p.Float("rsi_oversold"); err != nil {
				return nil, err
			}
			if s.MAPeriod, err = p.Int("ma_period"); err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

func (s *RSIMA) Run() error {
	s.events = s.events[:0]

	closes := market.Closes(s.candles)
	rsi := indicators.RSISeries(closes, s.RSIPeriod)
	ma := indicators.SMASeries(closes, s.MAPeriod)

	inPosition := false
	for i, c := range s.candles {
		if math.IsNaN(rsi[i]) || math.IsNaN(ma[i]) {
			continue
		}
		price := c.Close

		if !inPosition {
			if rsi[i] < s.Oversold && price > ma[i] {
				s.emit(sim.Open(c.Time, s.symbol, sim.Long, price,
					sim.WithTakeProfit(price*bracketTP),
					sim.WithStopLoss(price*bracketSL),
				))
				inPosition = true
			}
			continue
		}

		if rsi[i] > s.Overbought || price < ma[i] {
			s.emit(sim.Close(c.Time, s.symbol, price))
			inPosition = false
		}
	}
	return nil
}
