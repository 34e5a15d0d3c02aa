package strategy

import (
	"math"

	"SignalScreener/internal/calculator"
	"SignalScreener/internal/model"
)

// StopLoss returns close - StopFactor*ATR(StopATRPeriod), tightened to a
// fixed 14.25% or 9.5% stop when that risk exceeds 30% or 20% of close.
// The result is rounded to 4 decimals; NaN when history is too short.
func StopLoss(s model.Series, p Params) float64 {
	if s.Len() < p.StopATRPeriod+1 {
		return math.NaN()
	}
	price := s.Last().Close
	if price <= 0 {
		return math.NaN()
	}
	atr := calculator.ATR(s.Highs(), s.Lows(), s.Closes(), p.StopATRPeriod)
	if len(atr) == 0 {
		return math.NaN()
	}
	base := price - p.StopFactor*atr[len(atr)-1]
	risk := (price - base) / price

	switch {
	case risk > 0.30:
		return round4(price * (1 - 0.1425))
	case risk > 0.20:
		return round4(price * (1 - 0.095))
	}
	return round4(base)
}

func round4(v float64) float64 { return roundTo(v, 4) }
