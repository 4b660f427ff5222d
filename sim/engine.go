// Package sim is the event-driven trade simulator used by backtests and
// the optimizer.
package sim

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/pkg/id"
	"github.com/rustyeddy/gridtrader/risk"
)

// Config is the immutable per-run engine setup.
type Config struct {
	StartingBalance float64
	Costs           CostModel
	Sizing          risk.Policy
}

// Summary is the engine's end-of-run report. MaxDrawdownPct is in percent.
type Summary struct {
	StartingBalance float64
	FinalBalance    float64
	TotalTrades     int
	MaxDrawdownPct  float64
	Skipped         int
}

// Engine simulates one run. It is not safe for concurrent use; the
// optimizer gives every run its own engine.
type Engine struct {
	cfg Config

	balance   float64
	available float64

	positions map[string]*Position
	trades    []Trade
	equity    []EquityPoint

	maxEquity   float64
	maxDrawdown float64 // fraction
	skipped     int

	runID   string
	journal journal.Journal
	log     *zap.Logger
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithJournal mirrors every trade and equity sample to j.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) {
		if j != nil {
			e.journal = j
		}
	}
}

// WithRunID tags journal records.
func WithRunID(runID string) Option {
	return func(e *Engine) { e.runID = runID }
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		balance:   cfg.StartingBalance,
		available: cfg.StartingBalance,
		positions: make(map[string]*Position),
		maxEquity: cfg.StartingBalance,
		journal:   journal.Nop{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessSignal applies one event. It is the only way engine state changes
// besides CloseAll. Malformed events return an error wrapping
// ErrMalformedSignal; skipped opens do not return an error.
func (e *Engine) ProcessSignal(ev Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("process signal: %w", err)
	}

	pos, open := e.positions[ev.Symbol]

	switch ev.Kind {
	case KindPriceUpdate:
		if open {
			if err := e.checkExit(pos, ev.Time, ev.Price); err != nil {
				return err
			}
		}

	case KindClose:
		if open {
			if err := e.closePosition(pos, ev.Time, ev.Price, ReasonSignal); err != nil {
				return err
			}
		}

	case KindOpen:
		// A second open for a held symbol is only a price observation.
		if open {
			if err := e.checkExit(pos, ev.Time, ev.Price); err != nil {
				return err
			}
			break
		}
		e.openPosition(ev)
	}

	return e.trackEquity(ev.Time)
}

// CloseAll closes every open position at price, in symbol order, with
// reason EndOfRun.
func (e *Engine) CloseAll(t time.Time, price float64) error {
	if len(e.positions) == 0 {
		return nil
	}
	if !validPrice(price) {
		return fmt.Errorf("close all: price %v: %w", price, ErrMalformedSignal)
	}

	symbols := make([]string, 0, len(e.positions))
	for s := range e.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, s := range symbols {
		if err := e.closePosition(e.positions[s], t, price, ReasonEndOfRun); err != nil {
			return fmt.Errorf("close all: %w", err)
		}
	}
	return e.trackEquity(t)
}

func (e *Engine) checkExit(pos *Position, t time.Time, price float64) error {
	hit, exitPrice, reason := pos.ShouldExit(price)
	if !hit {
		return nil
	}
	return e.closePosition(pos, t, exitPrice, reason)
}

func (e *Engine) openPosition(ev Event) {
	d := risk.Evaluate(e.cfg.Sizing, risk.Intent{
		Symbol:    ev.Symbol,
		Price:     ev.Price,
		Available: e.available,
	})
	if !d.Allowed {
		e.skipped++
		e.log.Warn("skipping open",
			zap.String("symbol", ev.Symbol),
			zap.Time("time", ev.Time),
			zap.Float64("available", e.available),
			zap.String("reason", d.Reason()),
			zap.Error(ErrInsufficientBalance),
		)
		return
	}

	e.positions[ev.Symbol] = &Position{
		Symbol:     ev.Symbol,
		Direction:  ev.Direction,
		EntryTime:  ev.Time,
		EntryPrice: ev.Price,
		Quantity:   d.Quantity,
		Notional:   d.Notional,
		TakeProfit: copyLevel(ev.TakeProfit),
		StopLoss:   copyLevel(ev.StopLoss),
		Trailing:   ev.Trailing,
	}
	e.available -= d.Notional

	e.log.Debug("opened",
		zap.String("symbol", ev.Symbol),
		zap.String("direction", string(ev.Direction)),
		zap.Float64("price", ev.Price),
		zap.Float64("qty", d.Quantity),
	)
}

func (e *Engine) closePosition(pos *Position, t time.Time, exitPrice float64, reason string) error {
	gross, fee, slip, net := e.cfg.Costs.Apply(pos.Direction, pos.EntryPrice, exitPrice, pos.Quantity)

	e.balance += net
	e.available += pos.Notional + net

	tr := Trade{
		ID:           id.At(t),
		Symbol:       pos.Symbol,
		Direction:    pos.Direction,
		EntryTime:    pos.EntryTime,
		EntryPrice:   pos.EntryPrice,
		ExitTime:     t,
		ExitPrice:    exitPrice,
		Quantity:     pos.Quantity,
		GrossPnL:     gross,
		Fee:          fee,
		Slippage:     slip,
		NetPnL:       net,
		BalanceAfter: e.balance,
		Reason:       reason,
	}
	e.trades = append(e.trades, tr)
	delete(e.positions, pos.Symbol)

	e.log.Debug("closed",
		zap.String("symbol", tr.Symbol),
		zap.String("reason", reason),
		zap.Float64("exit", exitPrice),
		zap.Float64("net", net),
	)

	err := e.journal.RecordTrade(journal.TradeRecord{
		RunID:        e.runID,
		TradeID:      tr.ID,
		Symbol:       tr.Symbol,
		Direction:    string(tr.Direction),
		Quantity:     tr.Quantity,
		EntryPrice:   tr.EntryPrice,
		ExitPrice:    tr.ExitPrice,
		OpenTime:     tr.EntryTime,
		CloseTime:    tr.ExitTime,
		GrossPL:      tr.GrossPnL,
		Fee:          tr.Fee,
		Slippage:     tr.Slippage,
		RealizedPL:   tr.NetPnL,
		BalanceAfter: tr.BalanceAfter,
		Reason:       tr.Reason,
	})
	if err != nil {
		return fmt.Errorf("close %s: record trade: %w", pos.Symbol, err)
	}
	return nil
}

func (e *Engine) trackEquity(t time.Time) error {
	e.equity = append(e.equity, EquityPoint{Time: t, Balance: e.balance})

	if e.balance > e.maxEquity {
		e.maxEquity = e.balance
	} else if e.maxEquity > 0 {
		if dd := (e.maxEquity - e.balance) / e.maxEquity; dd > e.maxDrawdown {
			e.maxDrawdown = dd
		}
	}

	err := e.journal.RecordEquity(journal.EquitySnapshot{
		RunID:         e.runID,
		Time:          t,
		Balance:       e.balance,
		Available:     e.available,
		OpenPositions: len(e.positions),
	})
	if err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

// Trades returns a copy of the ledger in close order.
func (e *Engine) Trades() []Trade {
	out := make([]Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

func (e *Engine) EquityCurve() []EquityPoint {
	out := make([]EquityPoint, len(e.equity))
	copy(out, e.equity)
	return out
}

func (e *Engine) Summary() Summary {
	return Summary{
		StartingBalance: e.cfg.StartingBalance,
		FinalBalance:    e.balance,
		TotalTrades:     len(e.trades),
		MaxDrawdownPct:  e.maxDrawdown * 100,
		Skipped:         e.skipped,
	}
}

func (e *Engine) Balance() float64          { return e.balance }
func (e *Engine) AvailableBalance() float64 { return e.available }
func (e *Engine) OpenPositions() int        { return len(e.positions) }
func (e *Engine) Skipped() int              { return e.skipped }

// Position returns a copy of the open position for symbol.
func (e *Engine) Position(symbol string) (Position, bool) {
	p, ok := e.positions[symbol]
	if !ok {
		return Position{}, false
	}
	cp := *p
	cp.TakeProfit = copyLevel(p.TakeProfit)
	cp.StopLoss = copyLevel(p.StopLoss)
	return cp, true
}

func copyLevel(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
