// Package strategies holds the signal generators the optimizer searches
// over. Each strategy reads a full candle series and emits sim events.
package strategies

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/gridtrader/market"
	"github.com/rustyeddy/gridtrader/sim"
)

// Strategy turns a candle series into signals. Run is called once; Results
// returns the signals in time order.
type Strategy interface {
	Run() error
	Results() []sim.Event
}

// Factory builds a Strategy for one parameter set and describes the
// parameter space the optimizer searches.
type Factory interface {
	Name() string
	New(symbol, interval string, candles []market.Candle, p Params) (Strategy, error)
	Combinations() iter.Seq[Params]
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds f under f.Name(), replacing any earlier factory of that name.
func Register(f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[normalize(f.Name())] = f
}

func Lookup(name string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(namesLocked(), ", "))
	}
	return f, nil
}

// Names lists registered strategies, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Defaults is the first parameter set of f's grid.
func Defaults(f Factory) (Params, bool) {
	for p := range f.Combinations() {
		return p, true
	}
	return nil, false
}

// gridFactory is the Factory shared by the built-in strategies.
type gridFactory struct {
	name  string
	grid  Grid
	valid func(Params) bool
	build func(symbol, interval string, candles []market.Candle, p Params) (Strategy, error)
}

func (f gridFactory) Name() string { return f.name }

func (f gridFactory) Combinations() iter.Seq[Params] {
	return f.grid.Combinations(f.valid)
}

func (f gridFactory) New(symbol, interval string, candles []market.Candle, p Params) (Strategy, error) {
	if f.valid != nil && !f.valid(p) {
		return nil, fmt.Errorf("%s: invalid params %s", f.name, p)
	}
	s, err := f.build(symbol, interval, candles, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	return s, nil
}

func init() {
	Register(maCrossFactory())
	Register(rsiMAFactory())
	Register(intervalFactory())
	Register(emaCrossFactory())
}

// signals is embedded by strategies to collect their output.
type signals struct {
	events []sim.Event
}

func (s *signals) Results() []sim.Event {
	out := make([]sim.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *signals) emit(ev sim.Event) {
	s.events = append(s.events, ev)
}
