package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/gridtrader/market"
)

// SimpleMA is a streaming Simple Moving Average indicator
type SimpleMA struct {
	period int
	window []float64
	sum    float64
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.window = m.window[:0]
	m.sum = 0
}

func (m *SimpleMA) Update(c market.Candle) {
	m.window = append(m.window, c.Close)
	m.sum += c.Close
	// Keep only the last 'period' closes
	if len(m.window) > m.period {
		m.sum -= m.window[0]
		m.window = m.window[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return m.period > 0 && len(m.window) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(len(m.window))
}

// ExponentialMA is a streaming Exponential Moving Average indicator
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(c market.Candle) {
	if e.count < e.period {
		// During warmup, accumulate sum for initial SMA
		e.warmupSum += c.Close
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (c.Close-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool {
	return e.period > 0 && e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// RSI is a streaming simple-average Relative Strength Index. It produces
// the same values as RSISeries.
type RSI struct {
	period  int
	prev    float64
	hasPrev bool
	gains   []float64
	losses  []float64
	value   float64
}

func NewRSI(period int) *RSI {
	return &RSI{period: period, value: math.NaN()}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

// Warmup counts candles, not deltas: period deltas need period+1 closes.
func (r *RSI) Warmup() int {
	return r.period + 1
}

func (r *RSI) Reset() {
	r.hasPrev = false
	r.gains = r.gains[:0]
	r.losses = r.losses[:0]
	r.value = math.NaN()
}

func (r *RSI) Update(c market.Candle) {
	if !r.hasPrev {
		r.prev = c.Close
		r.hasPrev = true
		return
	}

	d := c.Close - r.prev
	r.prev = c.Close
	r.gains = append(r.gains, math.Max(d, 0))
	r.losses = append(r.losses, math.Max(-d, 0))
	if len(r.gains) > r.period {
		r.gains = r.gains[1:]
		r.losses = r.losses[1:]
	}
	if len(r.gains) < r.period {
		return
	}

	var g, l float64
	for i := range r.gains {
		g += r.gains[i]
		l += r.losses[i]
	}
	r.value = rsi(g/float64(r.period), l/float64(r.period))
}

// Ready is false during warmup and while the window has no price movement.
func (r *RSI) Ready() bool {
	return r.period > 0 && len(r.gains) >= r.period && !math.IsNaN(r.value)
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	return r.value
}
