package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gridtrader/sim"
)

func maCrossParams(useRSI bool) Params {
	return Params{
		{"short_ma", 2},
		{"long_ma", 3},
		{"use_rsi_filter", useRSI},
		{"rsi_period", 3},
		{"rsi_oversold", 30},
		{"rsi_overbought", 70},
	}
}

var crossSeries = []float64{10, 9, 8, 7, 6, 7, 8, 9, 10, 11, 10, 9, 8, 7, 6}

func TestMACrossSignals(t *testing.T) {
	t.Parallel()

	cs := candles(crossSeries...)
	evs := run(t, "ma-cross", cs, maCrossParams(false))
	require.Len(t, evs, 2)

	open := evs[0]
	assert.Equal(t, sim.KindOpen, open.Kind)
	assert.Equal(t, sim.Long, open.Direction)
	assert.Equal(t, cs[6].Time, open.Time)
	assert.Equal(t, 8.0, open.Price)
	require.NotNil(t, open.TakeProfit)
	require.NotNil(t, open.StopLoss)
	assert.InDelta(t, 8.16, *open.TakeProfit, 1e-9)
	assert.InDelta(t, 7.84, *open.StopLoss, 1e-9)

	cl := evs[1]
	assert.Equal(t, sim.KindClose, cl.Kind)
	assert.Equal(t, cs[11].Time, cl.Time)
	assert.Equal(t, 9.0, cl.Price)

	for _, ev := range evs {
		assert.NoError(t, ev.Validate())
	}
}

func TestMACrossRSIFilterBlocksEntry(t *testing.T) {
	t.Parallel()

	// RSI(3) at the cross is about 67, above the oversold level.
	evs := run(t, "ma-cross", candles(crossSeries...), maCrossParams(true))
	assert.Empty(t, evs)
}

func TestMACrossShortSeries(t *testing.T) {
	t.Parallel()

	evs := run(t, "ma-cross", candles(1, 2), maCrossParams(false))
	assert.Empty(t, evs)
}

func TestRSIMASignals(t *testing.T) {
	t.Parallel()

	cs := candles(10, 11, 12, 13, 14, 15, 16, 17, 16.9, 16.8, 18, 17.9, 17.8, 15)
	evs := run(t, "rsi-ma", cs, Params{
		{"rsi_period", 2},
		{"rsi_overbought", 70},
		{"rsi_oversold", 30},
		{"ma_period", 5},
	})

	type sig struct {
		kind  sim.Kind
		index int
		price float64
	}
	want := []sig{
		{sim.KindOpen, 9, 16.8},
		{sim.KindClose, 10, 18},
		{sim.KindOpen, 12, 17.8},
		{sim.KindClose, 13, 15},
	}
	require.Len(t, evs, len(want))
	for i, w := range want {
		assert.Equal(t, w.kind, evs[i].Kind, "event %d", i)
		assert.Equal(t, cs[w.index].Time, evs[i].Time, "event %d", i)
		assert.Equal(t, w.price, evs[i].Price, "event %d", i)
	}
	assert.Equal(t, sim.Long, evs[0].Direction)
}

func TestIntervalSignals(t *testing.T) {
	t.Parallel()

	cs := candles(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	evs := run(t, "interval", cs, Params{
		{"entry_interval", 5},
		{"exit_offset", 3},
	})

	// entries at 0 and 5; 10+3 runs past the series
	require.Len(t, evs, 4)
	assert.Equal(t, sim.KindOpen, evs[0].Kind)
	assert.Equal(t, sim.Long, evs[0].Direction)
	assert.Equal(t, cs[0].Time, evs[0].Time)
	assert.Equal(t, sim.KindClose, evs[1].Kind)
	assert.Equal(t, cs[3].Time, evs[1].Time)
	assert.Equal(t, sim.Short, evs[2].Direction)
	assert.Equal(t, cs[5].Time, evs[2].Time)
	assert.Equal(t, cs[8].Time, evs[3].Time)
}

func TestIntervalOverlappingExitsStayOrdered(t *testing.T) {
	t.Parallel()

	cs := candles(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	evs := run(t, "interval", cs, Params{
		{"entry_interval", 2},
		{"exit_offset", 3},
	})
	for i := 1; i < len(evs); i++ {
		assert.False(t, evs[i].Time.Before(evs[i-1].Time), "event %d out of order", i)
	}
}

func TestEMACrossSignals(t *testing.T) {
	t.Parallel()

	cs := candles(10, 10, 10, 9, 8, 7, 8, 9, 10, 11, 10, 9, 8, 7)
	evs := run(t, "ema-cross", cs, Params{
		{"fast_period", 2},
		{"slow_period", 3},
		{"stop_pct", 0.01},
		{"rr", 2.0},
		{"trailing_pct", 0.0},
	})

	require.Len(t, evs, 5)

	short := evs[0]
	assert.Equal(t, sim.KindOpen, short.Kind)
	assert.Equal(t, sim.Short, short.Direction)
	assert.Equal(t, cs[3].Time, short.Time)
	require.NotNil(t, short.StopLoss)
	require.NotNil(t, short.TakeProfit)
	assert.InDelta(t, 9.09, *short.StopLoss, 1e-9)
	assert.InDelta(t, 8.82, *short.TakeProfit, 1e-9)
	assert.Nil(t, short.Trailing)

	assert.Equal(t, sim.KindClose, evs[1].Kind)
	assert.Equal(t, cs[7].Time, evs[1].Time)
	assert.Equal(t, sim.Long, evs[2].Direction)
	assert.Equal(t, cs[7].Time, evs[2].Time)
	assert.Equal(t, sim.KindClose, evs[3].Kind)
	assert.Equal(t, sim.Short, evs[4].Direction)
	assert.Equal(t, cs[11].Time, evs[4].Time)
}

func TestEMACrossTrailing(t *testing.T) {
	t.Parallel()

	cs := candles(10, 10, 10, 9, 8, 7)
	evs := run(t, "ema-cross", cs, Params{
		{"fast_period", 2},
		{"slow_period", 3},
		{"stop_pct", 0.01},
		{"rr", 2.0},
		{"trailing_pct", 0.01},
	})
	require.Len(t, evs, 1)
	require.NotNil(t, evs[0].Trailing)
	assert.Equal(t, 0.01, evs[0].Trailing.Pct)
	assert.Nil(t, evs[0].TakeProfit)
	assert.NotNil(t, evs[0].StopLoss)
}
