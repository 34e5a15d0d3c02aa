package calculator

import (
	"errors"
	"math"

	"SignalScreener/internal/model"
)

// WilderRSI computes the Wilder-smoothed RSI for every index of closes.
//
// The averages are seeded at index period with the simple mean of the first
// period deltas and smoothed as avg = (avg*(period-1) + x) / period afterwards.
// Indices before the seed are NaN. Degenerate averages map to 100 (no losses),
// 0 (no gains) and 50 (neither).
func WilderRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func split(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 100
	case avgGain == 0:
		return 0
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// CalculateRSI returns the latest Wilder RSI of the bars.
// Requires at least period+1 bars. Returns 50.0 if data is insufficient.
func CalculateRSI(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 50.0, nil
	}
	rsi := WilderRSI(ExtractCloses(bars), period)
	return rsi[len(rsi)-1], nil
}

// StochRSI normalizes RSI(rsiPeriod) into its trailing stochPeriod range.
// Values before index rsiPeriod+stochPeriod-1 are NaN; a flat window yields 0.
func StochRSI(closes []float64, rsiPeriod, stochPeriod int) []float64 {
	rsi := WilderRSI(closes, rsiPeriod)
	out := make([]float64, len(closes))
	first := rsiPeriod + stochPeriod - 1
	for i := range out {
		if stochPeriod <= 0 || i < first {
			out[i] = math.NaN()
			continue
		}
		out[i] = stochAt(rsi, i, stochPeriod)
	}
	return out
}

// stochAt evaluates the stochastic of rsi at idx over the trailing window.
// It returns NaN when any value in the window is undefined.
func stochAt(rsi []float64, idx, window int) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range rsi[idx-window+1 : idx+1] {
		if math.IsNaN(v) {
			return math.NaN()
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return 0
	}
	return (rsi[idx] - lo) / (hi - lo)
}
