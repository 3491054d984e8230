package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMASeries computes a simple moving average over closes, aligned with the
// input series. Entries before the warmup window are nil so charts can skip
// them instead of plotting zeros.
func SMASeries(closes []float64, length int) []*float64 {
	result := make([]*float64, len(closes))
	if len(closes) < length || length <= 0 {
		return result
	}

	sma := talib.Sma(closes, length)
	for i := length - 1; i < len(sma); i++ {
		if math.IsNaN(sma[i]) || sma[i] == 0 {
			continue
		}
		v := sma[i]
		result[i] = &v
	}

	return result
}

// EMA calculates the current exponential moving average of closes, falling
// back to the plain mean when there is not enough data for the window.
func EMA(closes []float64, length int) float64 {
	if len(closes) == 0 {
		return 0
	}
	if len(closes) < length {
		return Mean(closes)
	}

	ema := talib.Ema(closes, length)
	last := ema[len(ema)-1]
	if math.IsNaN(last) {
		return Mean(closes[len(closes)-length:])
	}
	return last
}
