package backtest

import (
	"errors"
	"iter"
	"time"

	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/risk"
	"github.com/rustyeddy/gridtrader/sim"
	"github.com/rustyeddy/gridtrader/strategies"
)

var t0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// hourly returns n hourly candles whose close rises by one per bar.
func hourly(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = market.Candle{Time: t0.Add(time.Duration(i) * time.Hour), Open: p, High: p, Low: p, Close: p}
	}
	return out
}

func withCloses(closes ...float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{Time: t0.Add(time.Duration(i) * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func testConfig() sim.Config {
	return sim.Config{
		StartingBalance: 10000,
		Costs:           sim.CostModel{FeePct: 0.001, SlippagePct: 0.001},
		Sizing:          risk.Policy{Mode: risk.Fixed, FixedAmount: 10},
	}
}

// scripted emits whatever signals its build func returns.
type scripted struct {
	events []sim.Event
	err    error
}

func (s *scripted) Run() error           { return s.err }
func (s *scripted) Results() []sim.Event { return s.events }

type scriptFactory struct {
	grid  strategies.Grid
	build func(symbol string, candles []market.Candle, p strategies.Params) (*scripted, error)
}

func (f scriptFactory) Name() string { return "script" }

func (f scriptFactory) Combinations() iter.Seq[strategies.Params] {
	return f.grid.Combinations(nil)
}

func (f scriptFactory) New(symbol, _ string, candles []market.Candle, p strategies.Params) (strategies.Strategy, error) {
	return f.build(symbol, candles, p)
}

func fixedSignals(evs ...sim.Event) scriptFactory {
	return scriptFactory{
		grid: strategies.Grid{{Name: "x", Values: []any{1}}},
		build: func(string, []market.Candle, strategies.Params) (*scripted, error) {
			return &scripted{events: evs}, nil
		},
	}
}

var errBadCombo = errors.New("bad combination")

// holdFactory opens long on the first candle and closes n candles later.
// n == 3 fails to build and n == 7 panics.
func holdFactory(n int) scriptFactory {
	values := make([]any, n)
	for i := range values {
		values[i] = i + 1
	}
	return scriptFactory{
		grid: strategies.Grid{{Name: "hold", Values: values}},
		build: func(symbol string, candles []market.Candle, p strategies.Params) (*scripted, error) {
			hold, err := p.Int("hold")
			if err != nil {
				return nil, err
			}
			switch hold {
			case 3:
				return nil, errBadCombo
			case 7:
				panic("strategy blew up")
			}
			if hold >= len(candles) {
				hold = len(candles) - 1
			}
			first, exit := candles[0], candles[hold]
			return &scripted{events: []sim.Event{
				sim.Open(first.Time, symbol, sim.Long, first.Close),
				sim.Close(exit.Time, symbol, exit.Close),
			}}, nil
		},
	}
}
