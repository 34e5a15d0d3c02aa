package strategy

import (
	"time"

	"SignalScreener/internal/calculator"
	"SignalScreener/internal/model"
)

// BuyRules lists the buy predicates in evaluation order.
var BuyRules = []string{"B1", "B3", "B8", "B9", "B10", "B11", "B12", "B13", "B18"}

// EvaluateBuy runs every buy predicate against s. Short history yields false,
// never an error. tradeDate selects the bar B12 is evaluated at.
func EvaluateBuy(s, bench model.Series, tradeDate time.Time, p Params) map[string]bool {
	return map[string]bool{
		"B1":  checkB1(s, p),
		"B3":  checkB3(s),
		"B8":  checkB8(s),
		"B9":  checkB9(s),
		"B10": checkB10(s),
		"B11": checkB11(s),
		"B12": checkB12(s, tradeDate, p),
		"B13": checkB13(s, bench, p),
		"B18": checkB18(s),
	}
}

// IsBuy applies (B1 ∧ B3 ∧ B8 ∧ B9 ∧ B10 ∧ B11 ∧ B12 ∧ B13) ∨ B18.
func IsBuy(r map[string]bool) bool {
	return (r["B1"] && r["B3"] && r["B8"] && r["B9"] && r["B10"] &&
		r["B11"] && r["B12"] && r["B13"]) || r["B18"]
}

// checkB1: new 20-day high closing in the upper 35% of the day's range.
func checkB1(s model.Series, p Params) bool {
	if s.Len() < 51 {
		return false
	}
	highs := s.Highs()
	last := s.Last()
	n := len(highs)

	newHigh := last.High > calculator.Highest(highs[n-21:n-1])

	breakout := false
	if p.B1BandBreakout {
		closes := s.Closes()
		bb := calculator.Bollinger(closes, 51, 1.9)
		sma51 := calculator.SMA(closes, 51)
		if len(bb) > 0 && len(sma51) > 0 {
			mid := sma51[len(sma51)-1]
			if mid != 0 {
				dev := (last.Close - mid) / mid
				breakout = last.Close > bb[len(bb)-1].Upper && dev < 0.25
			}
		}
	}

	upperRange := last.Close > last.Low+0.65*(last.High-last.Low)
	return (newHigh || breakout) && upperRange
}

// checkB3: the 72-day average of Bollinger(21, 2) width is contracting over
// its last 58 values.
func checkB3(s model.Series) bool {
	bb := calculator.Bollinger(s.Closes(), 21, 2)
	if len(bb) < 72+58 {
		return false
	}
	widths := make([]float64, len(bb))
	for i, b := range bb {
		widths[i] = b.Width()
	}
	smooth := calculator.SMA(widths, 72)
	if len(smooth) < 58 {
		return false
	}
	return calculator.LinearRegressionSlope(calculator.Tail(smooth, 58)) < 0
}

// checkB8: no new low in the last 46 days relative to the 224 days before.
func checkB8(s model.Series) bool {
	if s.Len() < 270 {
		return false
	}
	lows := s.Lows()
	n := len(lows)
	return calculator.Lowest(lows[n-46:]) > calculator.Lowest(lows[n-270:n-46])
}

// checkB9 rejects a close in the lower half of the 50-day range when the
// range high came before the range low.
func checkB9(s model.Series) bool {
	if s.Len() < 50 {
		return false
	}
	highs := calculator.Tail(s.Highs(), 50)
	lows := calculator.Tail(s.Lows(), 50)
	hi, lo := calculator.ArgMax(highs), calculator.ArgMin(lows)
	mid := (highs[hi] + lows[lo]) / 2
	return !(s.Last().Close < mid && hi < lo)
}

// checkB10: the 250-day low is more than 68 bars old.
func checkB10(s model.Series) bool {
	if s.Len() < 250 {
		return false
	}
	lows := calculator.Tail(s.Lows(), 250)
	return len(lows)-1-calculator.ArgMin(lows) > 68
}

// checkB11 rejects a current ATR(22) near its 126-day peak.
func checkB11(s model.Series) bool {
	if s.Len() < 126+22 {
		return false
	}
	atr := calculator.ATR(s.Highs(), s.Lows(), s.Closes(), 22)
	if len(atr) < 126 {
		return false
	}
	cur := atr[len(atr)-1]
	return !(cur > 0.87*calculator.Highest(calculator.Tail(atr, 126)))
}

// checkB12 rejects an extended move: SMA150 grew by at least B12Growth over
// B12Days and today's high sits B12Deviation or more above it.
func checkB12(s model.Series, tradeDate time.Time, p Params) bool {
	t := s.IndexOf(tradeDate)
	if t < 0 || t < 150+p.B12Days {
		return false
	}
	closes := s.Closes()
	smaNow := calculator.Mean(closes[t-150 : t])
	smaPast := calculator.Mean(closes[t-p.B12Days-150 : t-p.B12Days])
	if smaNow == 0 || smaPast == 0 {
		return false
	}
	growth := (smaNow - smaPast) / smaPast
	deviation := (s.Bars[t].High - smaNow) / smaNow
	return !(growth >= p.B12Growth && deviation >= p.B12Deviation)
}

// checkB13 rejects a stock that trails the benchmark over every period.
func checkB13(s, bench model.Series, p Params) bool {
	if s.Len() == 0 || bench.Len() == 0 || len(p.B13Periods) == 0 {
		return false
	}
	aligned := calculator.AlignCloses(s, bench)
	longest := 0
	for _, n := range p.B13Periods {
		if n > longest {
			longest = n
		}
	}
	if len(aligned) < longest+1 {
		return false
	}
	for _, n := range p.B13Periods {
		if !calculator.Underperforms(aligned, n) {
			return true
		}
	}
	return false
}

// checkB18 is the trend template with a volatility-contraction breakout.
func checkB18(s model.Series) bool {
	if s.Len() < 250 {
		return false
	}
	closes, highs, lows := s.Closes(), s.Highs(), s.Lows()
	last := closes[len(closes)-1]

	sma50 := calculator.SMA(closes, 50)
	sma150 := calculator.SMA(closes, 150)
	sma200 := calculator.SMA(closes, 200)
	if len(sma200) < 22 {
		return false
	}
	m50, m150, m200 := sma50[len(sma50)-1], sma150[len(sma150)-1], sma200[len(sma200)-1]

	if !(last > m150 && last > m200) || !(m150 > m200) {
		return false
	}
	if !(m200 > sma200[len(sma200)-22]) {
		return false
	}
	if !(m50 > m150 && m50 > m200) || !(last > m50) {
		return false
	}
	if !(last >= 1.30*calculator.Lowest(lows[len(lows)-250:])) ||
		!(last >= 0.75*calculator.Highest(highs[len(highs)-250:])) {
		return false
	}

	bb := calculator.Bollinger(closes, 21, 2)
	if len(bb) < 82 {
		return false
	}
	widths := make([]float64, len(bb))
	for i, b := range bb {
		widths[i] = b.Upper - b.Lower
	}
	squeeze := calculator.Mean(calculator.Tail(widths, 21)) < 0.22*calculator.Mean(calculator.Tail(widths, 82))
	return squeeze && last > bb[len(bb)-1].Upper
}
