package calculator

import "math"

// TrueRange returns TR for indices 1..n-1; the first TR belongs to bar 1.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(highs)
	if n < 2 || len(lows) != n || len(closes) != n {
		return nil
	}
	trs := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prev := closes[i-1]
		tr := math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-prev), math.Abs(lows[i]-prev)))
		trs = append(trs, tr)
	}
	return trs
}

// ATR is the simple moving average of the true range over period.
// It needs period+1 bars and yields len(highs)-period values.
func ATR(highs, lows, closes []float64, period int) []float64 {
	if period <= 0 || len(highs) < period+1 {
		return nil
	}
	return SMA(TrueRange(highs, lows, closes), period)
}
