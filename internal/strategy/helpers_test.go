package strategy

import (
	"time"

	"SignalScreener/internal/model"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func dateAt(i int) time.Time { return day0.AddDate(0, 0, i) }

// flatBars builds a series where open, high, low and close are all equal.
func flatBars(closes []float64) model.Series {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: dateAt(i), Open: c, High: c, Low: c, Close: c}
	}
	return model.Series{Symbol: "TEST", Bars: bars}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ascending(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// trendTemplate rises for 200 bars, consolidates flat for 49, then breaks out.
func trendTemplate() []float64 {
	return concat(ascending(200, 50, 0.5), constant(49, 150), []float64{151})
}

func lastDate(s model.Series) time.Time { return s.Last().Time }
