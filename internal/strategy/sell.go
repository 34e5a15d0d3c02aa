package strategy

import (
	"errors"
	"math"
	"time"

	"SignalScreener/internal/calculator"
	"SignalScreener/internal/model"
	"SignalScreener/internal/series"
)

// SellRules lists the sell predicates in evaluation order.
var SellRules = []string{"S1", "S4", "S5", "S6", "S7", "S8", "S9", "S10", "S11", "S12", "S13", "S14", "S15", "S16", "S17"}

// SellInput is everything the sell path reads.
type SellInput struct {
	Series    model.Series
	Benchmark model.Series
	Position  model.Position
	TradeDate time.Time
}

type sellRule func(*sellContext) (bool, error)

var sellTable = map[string]sellRule{
	"S1":  checkS1,
	"S4":  checkS4,
	"S5":  checkS5,
	"S6":  checkS6,
	"S7":  checkS7,
	"S8":  checkS8,
	"S9":  checkS9,
	"S10": checkS10,
	"S11": checkS11,
	"S12": checkS12,
	"S13": checkS13,
	"S14": checkS14,
	"S15": checkS15,
	"S16": checkS16,
	"S17": checkS17,
}

// EvaluateSell runs every sell predicate. Rules that cannot be computed are
// left out of the map and reported in the returned error, one *RuleError per
// rule joined with errors.Join. Short history surfaces as
// ErrInsufficientHistory; an unmet days-since-entry gate is a plain false.
func EvaluateSell(in SellInput, p Params) (map[string]bool, error) {
	c := newSellContext(in, p)
	out := make(map[string]bool, len(SellRules))
	var errs []error
	for _, name := range SellRules {
		ok, err := sellTable[name](c)
		if err != nil {
			errs = append(errs, &RuleError{Rule: name, Err: err})
			continue
		}
		out[name] = ok
	}
	return out, errors.Join(errs...)
}

// IsSell ORs every sell predicate; a missing rule counts as false.
func IsSell(r map[string]bool) bool {
	for _, name := range SellRules {
		if r[name] {
			return true
		}
	}
	return false
}

type sellContext struct {
	s     model.Series
	bench model.Series
	pos   model.Position
	date  time.Time
	p     Params

	closes, highs, lows, opens []float64
	trs                        []float64
}

func newSellContext(in SellInput, p Params) *sellContext {
	s := series.SortByDate(in.Series)
	return &sellContext{
		s:      s,
		bench:  series.SortByDate(in.Benchmark),
		pos:    in.Position,
		date:   in.TradeDate,
		p:      p,
		closes: s.Closes(),
		highs:  s.Highs(),
		lows:   s.Lows(),
		opens:  s.Opens(),
		trs:    calculator.TrueRange(s.Highs(), s.Lows(), s.Closes()),
	}
}

func (c *sellContext) n() int    { return len(c.closes) }
func (c *sellContext) last() int { return len(c.closes) - 1 }

// daysSinceEntry counts bars from the entry bar to the last bar.
func (c *sellContext) daysSinceEntry() (int, error) {
	idx := c.entryIndex()
	if idx < 0 {
		return 0, ErrEntryOutOfRange
	}
	return c.last() - idx, nil
}

func (c *sellContext) entryIndex() int {
	return c.s.IndexOnOrAfter(c.pos.EntryDate)
}

// atr returns the ATR(period) series built from the shared true ranges.
func (c *sellContext) atr(period int) []float64 {
	return calculator.SMA(c.trs, period)
}

// checkS1: last close at or below the position's stop.
func checkS1(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 1); err != nil {
		return false, err
	}
	stop := c.pos.CurrentStop
	if math.IsNaN(stop) || math.IsInf(stop, 0) {
		return false, ErrInvalidStop
	}
	return c.closes[c.last()] <= stop, nil
}

// checkS4: weak follow-through in the 50 bars after entry.
func checkS4(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 200); err != nil {
		return false, err
	}
	buy := c.entryIndex()
	if buy < 0 {
		return false, ErrEntryOutOfRange
	}
	day50 := buy + 50
	if day50 >= c.n() {
		return false, nil
	}
	sma := calculator.SMA(c.closes, 150)
	above := 0
	for i := buy + 1; i <= day50; i++ {
		if i < 149 {
			continue
		}
		if c.closes[i] > sma[i-149] {
			above++
		}
	}
	ratio := float64(above) / 50
	gainPct := (c.closes[day50] - c.pos.EntryPrice) / c.pos.EntryPrice * 100
	return ratio < 0.5 && gainPct < 5, nil
}

// checkS5: close at or below a stop that steps up every 25 bars after day 45.
func checkS5(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 21); err != nil {
		return false, err
	}
	days, err := c.daysSinceEntry()
	if err != nil {
		return false, err
	}
	if days < 45 {
		return false, nil
	}
	atr := c.atr(20)
	a := atr[len(atr)-1]
	steps := (days - 45) / 25
	stop := c.pos.EntryPrice + 0.62*a*float64(1+steps)
	return c.closes[c.last()] <= stop, nil
}

// checkS6: no new 90-day high during the last 75 bars.
func checkS6(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 100); err != nil {
		return false, err
	}
	days, err := c.daysSinceEntry()
	if err != nil {
		return false, err
	}
	if days < 50 {
		return false, nil
	}
	start := c.last() - 75
	if start < 90 {
		start = 90
	}
	for t := start; t <= c.last(); t++ {
		if c.highs[t] > calculator.Highest(c.highs[t-90:t]) {
			return false, nil
		}
	}
	return true, nil
}

// checkS7: two consecutive bearish bodies wider than 2×ATR(22).
func checkS7(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 23); err != nil {
		return false, err
	}
	atr := c.atr(22)
	if len(atr) < 2 {
		return false, &InsufficientHistoryError{Need: 24, Have: c.n()}
	}
	for k := 0; k < 2; k++ {
		i := c.last() - k
		if !(c.opens[i]-c.closes[i] > 2*atr[len(atr)-1-k]) {
			return false, nil
		}
	}
	return true, nil
}

// checkS8: elevated ATR(100) with at least 3 of the last 5 bodies beyond 2.4×ATR(100).
func checkS8(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 148); err != nil {
		return false, err
	}
	atr22 := c.atr(22)
	atr100 := c.atr(100)
	if !(atr100[len(atr100)-1] > 0.74*calculator.Highest(calculator.Tail(atr22, 126))) {
		return false, nil
	}
	count := 0
	for j := 0; j < 5; j++ {
		i := c.n() - 5 + j
		if c.opens[i]-c.closes[i] > 2.4*atr100[len(atr100)-5+j] {
			count++
		}
	}
	return count >= 3, nil
}

// checkS9: energy score below S9Threshold.
func checkS9(c *sellContext) (bool, error) {
	res, err := EvaluateEnergy(c.date, c.s, c.bench, c.p, WindowSingle)
	if err != nil {
		return false, err
	}
	if res.TargetIndex < c.p.EnergyMinBars {
		return false, &InsufficientHistoryError{Need: c.p.EnergyMinBars + 1, Have: res.TargetIndex + 1}
	}
	return res.Score < c.p.S9Threshold, nil
}

// checkS10: volatility expansion with a drawdown from the 90-day high.
func checkS10(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 101); err != nil {
		return false, err
	}
	atr10 := c.atr(10)
	atr100 := c.atr(100)
	high90 := calculator.Highest(calculator.Tail(c.highs, 90))
	if high90 <= 0 {
		return false, nil
	}
	drawdownPct := (high90 - c.closes[c.last()]) / high90 * 100
	return atr10[len(atr10)-1] > 2.6*atr100[len(atr100)-1] && drawdownPct > 5, nil
}

// fibStreak returns the current run of closes below the ratio level of the
// trailing 250-bar range, and false when the range is degenerate.
func (c *sellContext) fibStreak(ratio float64) (int, bool) {
	top := calculator.Highest(calculator.Tail(c.highs, 250))
	bottom := calculator.Lowest(calculator.Tail(c.lows, 250))
	if !(top > bottom) {
		return 0, false
	}
	return calculator.StreakBelow(c.closes, calculator.FibLevel(top, bottom, ratio)), true
}

// checkS11: 3 closes in a row under the 0.382 retracement, 300+ bars in.
func checkS11(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 250); err != nil {
		return false, err
	}
	days, err := c.daysSinceEntry()
	if err != nil {
		return false, err
	}
	if days < 300 {
		return false, nil
	}
	streak, ok := c.fibStreak(0.382)
	return ok && streak >= 3, nil
}

// checkS12: 23 closes in a row under the 0.236 retracement, 240+ bars in.
func checkS12(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 250); err != nil {
		return false, err
	}
	days, err := c.daysSinceEntry()
	if err != nil {
		return false, err
	}
	if days < 240 {
		return false, nil
	}
	streak, ok := c.fibStreak(0.236)
	return ok && streak >= 23, nil
}

// checkS13: close below the lowest close of the previous 80 bars.
func checkS13(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 81); err != nil {
		return false, err
	}
	days, err := c.daysSinceEntry()
	if err != nil {
		return false, err
	}
	if days < 238 {
		return false, nil
	}
	last := c.last()
	return c.closes[last] < calculator.Lowest(c.closes[last-80:last]), nil
}

// checkS14: trails the benchmark over 35, 70 and 105 common trading days.
func checkS14(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 106); err != nil {
		return false, err
	}
	if err := needBars(c.bench.Len(), 106); err != nil {
		return false, err
	}
	aligned := calculator.AlignCloses(c.s, c.bench)
	if err := needBars(len(aligned), 106); err != nil {
		return false, err
	}

	entryKey := c.pos.EntryDate.Format(model.DateLayout)
	buy := -1
	for i, a := range aligned {
		if a.Date >= entryKey {
			buy = i
			break
		}
	}
	if buy < 0 {
		return false, ErrEntryOutOfRange
	}
	last := len(aligned) - 1
	if last-buy < 300 {
		return false, nil
	}

	for _, h := range []int{35, 70, 105} {
		ra := aligned[last].Subject/aligned[last-h].Subject - 1
		rb := aligned[last].Benchmark/aligned[last-h].Benchmark - 1
		if ra >= rb {
			return false, nil
		}
	}
	return true, nil
}

// checkS15: 4-bar crash deeper than 25%.
func checkS15(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 5); err != nil {
		return false, err
	}
	base := c.closes[c.last()-4]
	if base <= 0 {
		return false, nil
	}
	return c.closes[c.last()]/base-1 < -0.25, nil
}

// checkS16: ATR(22) up 50% in 12 bars with a 10-bar drop beyond 15%.
func checkS16(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 35); err != nil {
		return false, err
	}
	base := c.closes[c.last()-10]
	if base <= 0 {
		return false, nil
	}
	atr := c.atr(22)
	spike := atr[len(atr)-1] > 1.5*atr[len(atr)-13]
	drop := c.closes[c.last()]/base-1 < -0.15
	return spike && drop, nil
}

// checkS17: close near the bottom of a wide 150-bar range.
func checkS17(c *sellContext) (bool, error) {
	if err := needBars(c.n(), 150); err != nil {
		return false, err
	}
	if c.p.S17MinDays > 0 {
		days, err := c.daysSinceEntry()
		if err != nil {
			return false, err
		}
		if days < c.p.S17MinDays {
			return false, nil
		}
	}
	high := calculator.Highest(calculator.Tail(c.highs, 150))
	low := calculator.Lowest(calculator.Tail(c.lows, 150))
	if !(high > low) {
		return false, nil
	}
	return high > 1.6*low && c.closes[c.last()] < 1.3*low, nil
}
