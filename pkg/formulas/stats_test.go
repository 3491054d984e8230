package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyReturns(t *testing.T) {
	returns := DailyReturns([]float64{100, 110, 99})

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}

func TestDailyReturnsShortSeries(t *testing.T) {
	assert.Empty(t, DailyReturns(nil))
	assert.Empty(t, DailyReturns([]float64{100}))
}

func TestCumulativeReturn(t *testing.T) {
	assert.InDelta(t, 0.05, CumulativeReturn([]float64{10000, 10200, 10500}), 1e-9)
	assert.Equal(t, 0.0, CumulativeReturn([]float64{10000}))
	assert.Equal(t, 0.0, CumulativeReturn([]float64{0, 100}))
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 120, trough 90: drawdown 25%
	values := []float64{100, 120, 90, 110}
	assert.InDelta(t, 0.25, MaxDrawdown(values), 1e-9)
}

func TestMaxDrawdownMonotonicSeries(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{100, 110, 120}))
}

func TestAnnualizedVolatilityEmpty(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))
	assert.Equal(t, 0.0, AnnualizedVolatility([]float64{0.01}))
}

func TestSMASeriesAlignment(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	sma := SMASeries(closes, 3)

	assert.Len(t, sma, 5)
	assert.Nil(t, sma[0])
	assert.Nil(t, sma[1])
	if assert.NotNil(t, sma[2]) {
		assert.InDelta(t, 2.0, *sma[2], 1e-9)
	}
	if assert.NotNil(t, sma[4]) {
		assert.InDelta(t, 4.0, *sma[4], 1e-9)
	}
}

func TestEMA(t *testing.T) {
	// Shorter than the window falls back to the mean.
	assert.InDelta(t, 2.0, EMA([]float64{1, 2, 3}, 5), 1e-9)
	assert.Equal(t, 0.0, EMA(nil, 5))

	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ema := EMA(closes, 3)
	assert.Greater(t, ema, 8.0)
	assert.Less(t, ema, 10.0)
}

func TestSMASeriesInsufficientData(t *testing.T) {
	sma := SMASeries([]float64{1, 2}, 5)

	assert.Len(t, sma, 2)
	assert.Nil(t, sma[0])
	assert.Nil(t, sma[1])
}
