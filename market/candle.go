package market

import "time"

// Candle is one OHLCV bar. Time is the bar open in UTC.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes returns the close price of every candle, in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Between returns the candles with from <= Time < to. A zero bound is open.
// The returned slice is a copy so callers may hand it to concurrent runs.
func Between(candles []Candle, from, to time.Time) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if !from.IsZero() && c.Time.Before(from) {
			continue
		}
		if !to.IsZero() && !c.Time.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Span returns the first and last candle times. ok is false for an empty series.
func Span(candles []Candle) (first, last time.Time, ok bool) {
	if len(candles) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return candles[0].Time, candles[len(candles)-1].Time, true
}
