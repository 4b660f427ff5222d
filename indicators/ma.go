package indicators

import (
	"fmt"
	"math"
)

// MA calculates the Simple Moving Average of the last period values.
func MA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// EMA calculates the Exponential Moving Average seeded with the SMA of the
// first period values.
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	ema := sma / float64(period)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
	}
	return ema, nil
}

// SMASeries returns the rolling mean for every index. Entries before the
// window is full are NaN.
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if period <= 0 || i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// RSISeries is the simple-average RSI: gains and losses of consecutive
// closes are averaged over a rolling window rather than Wilder smoothed.
// Entries before period deltas exist are NaN, as is a window with no
// movement at all.
func RSISeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) <= period {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	var sumGain, sumLoss float64
	for i := 1; i < len(values); i++ {
		sumGain += gains[i]
		sumLoss += losses[i]
		if i > period {
			sumGain -= gains[i-period]
			sumLoss -= losses[i-period]
		}
		if i < period {
			continue
		}
		out[i] = rsi(sumGain/float64(period), sumLoss/float64(period))
	}
	return out
}

func rsi(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return math.NaN()
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
