package strategy

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"SignalScreener/internal/calculator"
	"SignalScreener/internal/model"
)

// PRHorizons are the price-relative lookbacks, in aligned trading days.
var PRHorizons = []int{5, 20, 60, 125, 250}

// Snapshot summarizes the bars up to tradeDate: rolling 20/50/250-bar
// high/low, RSI(14) and price relative to the benchmark. A bar dated exactly
// tradeDate must exist.
func Snapshot(s, bench model.Series, tradeDate time.Time) (*model.TASnapshot, error) {
	t := s.IndexOf(tradeDate)
	if t < 0 {
		return nil, ErrTradeDateNotFound
	}
	s = s.Head(t + 1)
	if b := bench.LastIndexOnOrBefore(tradeDate); b >= 0 {
		bench = bench.Head(b + 1)
	} else {
		bench = bench.Head(0)
	}

	highs, lows := s.Highs(), s.Lows()
	snap := &model.TASnapshot{
		High20:   calculator.Highest(calculator.Tail(highs, 20)),
		Low20:    calculator.Lowest(calculator.Tail(lows, 20)),
		High50:   calculator.Highest(calculator.Tail(highs, 50)),
		Low50:    calculator.Lowest(calculator.Tail(lows, 50)),
		High250:  calculator.Highest(calculator.Tail(highs, 250)),
		Low250:   calculator.Lowest(calculator.Tail(lows, 250)),
		PR:       make(map[int]float64, len(PRHorizons)),
		UsedDays: s.Len(),
		From:     s.Bars[0].DateKey(),
		To:       s.Last().DateKey(),
	}

	rsi := calculator.WilderRSI(s.Closes(), 14)
	if v := rsi[len(rsi)-1]; !math.IsNaN(v) {
		r := roundTo(v, 3)
		snap.RSI14 = &r
	}

	aligned := calculator.AlignCloses(s, bench)
	last := len(aligned) - 1
	for _, n := range PRHorizons {
		if len(aligned) <= n {
			continue
		}
		from, to := aligned[last-n], aligned[last]
		pr := (to.Subject / from.Subject) / (to.Benchmark / from.Benchmark)
		if math.IsNaN(pr) || math.IsInf(pr, 0) {
			continue
		}
		snap.PR[n] = roundTo(pr, 3)
	}
	return snap, nil
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
