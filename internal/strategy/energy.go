package strategy

import (
	"math"
	"time"

	"SignalScreener/internal/calculator"
	"SignalScreener/internal/model"
	"SignalScreener/internal/series"
)

// WindowMode selects which evaluated bars EvaluateEnergy returns.
type WindowMode int

const (
	// WindowTrailing returns the trailing EnergyWindow bars ending at the trade date.
	WindowTrailing WindowMode = iota
	// WindowSingle returns only the trade-date bar.
	WindowSingle
)

// EnergyResult is the outcome of one energy evaluation.
type EnergyResult struct {
	Score   float64
	Records []model.EnergyRecord
	// TargetIndex is the index of the trade-date bar inside the trimmed series.
	TargetIndex int
}

// Latest returns the record of the trade-date bar.
func (r *EnergyResult) Latest() model.EnergyRecord {
	return r.Records[len(r.Records)-1]
}

// EvaluateEnergy computes E1..E5 over the trailing window ending at the last
// bar dated on or before tradeDate. Both series are trimmed to
// EnergyLookbackMonths before tradeDate first. The score always covers the
// full window; mode only narrows the returned records.
func EvaluateEnergy(tradeDate time.Time, stock, bench model.Series, p Params, mode WindowMode) (*EnergyResult, error) {
	floor := series.LookbackFloor(tradeDate, p.EnergyLookbackMonths)
	stock = series.Trim(stock, floor)
	bench = series.Trim(bench, floor)

	target := stock.LastIndexOnOrBefore(tradeDate)
	if target < 0 {
		return nil, ErrTradeDateNotFound
	}

	ev := newEnergyEval(stock, bench, p)
	start := target - (p.EnergyWindow - 1)
	if start < 0 {
		start = 0
	}

	records := make([]model.EnergyRecord, 0, target-start+1)
	ones, defined := 0, 0
	for idx := start; idx <= target; idx++ {
		rec := ev.at(idx)
		rec.IsLatest = idx == target
		for _, f := range rec.E {
			if f.Defined() {
				defined++
			}
			if f == model.FlagOn {
				ones++
			}
		}
		records = append(records, rec)
	}

	res := &EnergyResult{TargetIndex: target, Records: records}
	if defined > 0 {
		res.Score = float64(ones) / float64(p.EnergyWindow*5)
	}
	if mode == WindowSingle {
		res.Records = records[len(records)-1:]
	}
	return res, nil
}

type energyEval struct {
	p                   Params
	bars                []model.OHLCV
	closes, highs, lows []float64
	stoch               []float64
	benchCloses         []float64
	benchIndex          map[string]int
}

func newEnergyEval(stock, bench model.Series, p Params) *energyEval {
	ev := &energyEval{
		p:           p,
		bars:        stock.Bars,
		closes:      stock.Closes(),
		highs:       stock.Highs(),
		lows:        stock.Lows(),
		benchCloses: bench.Closes(),
		benchIndex:  make(map[string]int, bench.Len()),
	}
	ev.stoch = calculator.StochRSI(ev.closes, 10, 10)
	for i, b := range bench.Bars {
		ev.benchIndex[b.DateKey()] = i
	}
	return ev
}

func (ev *energyEval) at(idx int) model.EnergyRecord {
	rec := model.EnergyRecord{Date: ev.bars[idx].Time}
	if idx < ev.p.EnergyMinBars {
		for i := range rec.E {
			rec.E[i] = model.FlagNA
		}
		return rec
	}
	rec.E = [5]model.Flag{
		model.FlagOf(ev.e1(idx)),
		model.FlagOf(ev.e2(idx)),
		model.FlagOf(ev.e3(idx)),
		model.FlagOf(ev.e4(idx)),
		model.FlagOf(ev.e5(idx)),
	}
	return rec
}

// e1: new 20-day high closing in the upper 35% of the day's range.
func (ev *energyEval) e1(idx int) bool {
	prev := 0.0
	if idx >= 1 {
		prev = calculator.Highest(calculator.Window(ev.highs, idx-1, 20))
	}
	h, l, c := ev.highs[idx], ev.lows[idx], ev.closes[idx]
	return h > prev && c > (h-l)*0.65+l
}

// e2: StochRSI(10, 10) above 0.5.
func (ev *energyEval) e2(idx int) bool {
	v := ev.stoch[idx]
	return !math.IsNaN(v) && v > 0.5
}

// e3: positive 66-bar slope of close.
func (ev *energyEval) e3(idx int) bool {
	if idx < 66 {
		return false
	}
	return (ev.closes[idx]-ev.closes[idx-66])/66 > 0
}

// e4: 33-bar performance beats the benchmark on the same calendar date.
func (ev *energyEval) e4(idx int) bool {
	b, ok := ev.benchIndex[ev.bars[idx].DateKey()]
	if !ok || idx < 33 || b < 33 {
		return false
	}
	stock := ev.closes[idx] / ev.closes[idx-33]
	bench := ev.benchCloses[b] / ev.benchCloses[b-33]
	return stock > bench
}

// e5: upper half of the 5-bar range, up over 5 bars, and within 7% of the
// E5HighWindow high.
func (ev *energyEval) e5(idx int) bool {
	c := ev.closes[idx]
	min5 := calculator.Lowest(calculator.Window(ev.lows, idx, 5))
	max5 := calculator.Highest(calculator.Window(ev.highs, idx, 5))
	maxLong := calculator.Highest(calculator.Window(ev.highs, idx, ev.p.E5HighWindow))

	upperHalf := max5 != min5 && (c-min5)/(max5-min5) > 0.5
	rising := idx >= 5 && c-ev.closes[idx-5] > 0
	nearHigh := maxLong != 0 && (maxLong-c)/maxLong < 0.07
	return upperHalf && rising && nearHigh
}
