package strategy

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"SignalScreener/internal/model"
)

func sellInput(s, bench model.Series, entryIdx int, entryPrice, stop float64) SellInput {
	return SellInput{
		Series:    s,
		Benchmark: bench,
		Position:  model.Position{EntryDate: dateAt(entryIdx), EntryPrice: entryPrice, CurrentStop: stop},
		TradeDate: lastDate(s),
	}
}

func runRule(t *testing.T, rule sellRule, in SellInput) (bool, error) {
	t.Helper()
	return rule(newSellContext(in, DefaultParams()))
}

func TestIsSell_S1Alone(t *testing.T) {
	s := flatBars(ascending(30, 10, 1))
	rules, err := EvaluateSell(sellInput(s, s, 0, 10, 50), DefaultParams())
	if !rules["S1"] {
		t.Fatal("close under the stop must trigger S1")
	}
	if !IsSell(rules) {
		t.Error("S1 alone must make IsSell true")
	}
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("expected insufficient history for long-window rules, got %v", err)
	}
	if _, ok := rules["S4"]; ok {
		t.Error("S4 cannot be computed on 30 bars and must be left out")
	}
	if IsSell(map[string]bool{"S1": false}) {
		t.Error("no rule true means no sell")
	}
}

func TestS1_InvalidStop(t *testing.T) {
	s := flatBars(constant(5, 10))
	_, err := runRule(t, checkS1, sellInput(s, s, 0, 10, math.NaN()))
	if !errors.Is(err, ErrInvalidStop) {
		t.Errorf("want ErrInvalidStop, got %v", err)
	}
}

func TestSell_FlatSeriesIsDegenerateSafe(t *testing.T) {
	s := flatBars(constant(300, 50))
	rules, _ := EvaluateSell(sellInput(s, s, 0, 50, 0), DefaultParams())
	for _, rule := range []string{"S7", "S8", "S10", "S16"} {
		v, ok := rules[rule]
		if !ok {
			t.Errorf("%s should be computable on 300 bars", rule)
			continue
		}
		if v {
			t.Errorf("%s must be false when ATR is zero", rule)
		}
	}
}

func TestSell_InsufficientHistory(t *testing.T) {
	tests := []struct {
		rule sellRule
		name string
		bars int
	}{
		{checkS4, "S4", 199},
		{checkS5, "S5", 20},
		{checkS6, "S6", 99},
		{checkS7, "S7", 22},
		{checkS8, "S8", 147},
		{checkS10, "S10", 100},
		{checkS11, "S11", 249},
		{checkS12, "S12", 249},
		{checkS13, "S13", 80},
		{checkS14, "S14", 105},
		{checkS15, "S15", 4},
		{checkS16, "S16", 34},
		{checkS17, "S17", 149},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := flatBars(constant(tt.bars, 100))
			_, err := runRule(t, tt.rule, sellInput(s, s, 0, 100, 0))
			var ih *InsufficientHistoryError
			if !errors.As(err, &ih) {
				t.Fatalf("want InsufficientHistoryError, got %v", err)
			}
			if ih.Have != tt.bars {
				t.Errorf("Have = %d, want %d", ih.Have, tt.bars)
			}
		})
	}
}

func TestSell_EntryGates(t *testing.T) {
	s := flatBars(constant(300, 100))
	tests := []struct {
		rule  sellRule
		name  string
		entry int
	}{
		{checkS5, "S5", 260},
		{checkS6, "S6", 260},
		{checkS11, "S11", 0},
		{checkS12, "S12", 100},
		{checkS13, "S13", 100},
		{checkS14, "S14", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runRule(t, tt.rule, sellInput(s, s, tt.entry, 100, 0))
			if err != nil {
				t.Fatalf("gate must not error: %v", err)
			}
			if got {
				t.Error("gate not reached; want false")
			}
		})
	}
}

func TestSell_EntryOutOfRange(t *testing.T) {
	s := flatBars(constant(200, 100))
	_, err := runRule(t, checkS4, sellInput(s, s, 500, 100, 0))
	if !errors.Is(err, ErrEntryOutOfRange) {
		t.Errorf("want ErrEntryOutOfRange, got %v", err)
	}
}

func TestS4(t *testing.T) {
	s := flatBars(constant(200, 100))
	if got, err := runRule(t, checkS4, sellInput(s, s, 100, 100, 0)); err != nil || !got {
		t.Errorf("stalled trade should trigger S4: %v %v", got, err)
	}
	if got, err := runRule(t, checkS4, sellInput(s, s, 180, 100, 0)); err != nil || got {
		t.Errorf("day 50 not reached yet: %v %v", got, err)
	}
	up := flatBars(ascending(260, 100, 1))
	if got, _ := runRule(t, checkS4, sellInput(up, up, 160, 260, 0)); got {
		t.Error("trade holding above SMA150 must not trigger S4")
	}
}

func TestS5(t *testing.T) {
	s := flatBars(constant(100, 100))
	if got, _ := runRule(t, checkS5, sellInput(s, s, 0, 100, 0)); !got {
		t.Error("close at the escalated stop should trigger S5")
	}
	up := flatBars(ascending(100, 100, 1))
	if got, _ := runRule(t, checkS5, sellInput(up, up, 0, 100, 0)); got {
		t.Error("close far above the stop must not trigger S5")
	}
}

func TestS6(t *testing.T) {
	flat := flatBars(constant(200, 100))
	if got, _ := runRule(t, checkS6, sellInput(flat, flat, 0, 100, 0)); !got {
		t.Error("no new 90-day high should trigger S6")
	}
	up := flatBars(ascending(200, 100, 1))
	if got, _ := runRule(t, checkS6, sellInput(up, up, 0, 100, 0)); got {
		t.Error("fresh highs must not trigger S6")
	}
}

func TestS7_BearishBodies(t *testing.T) {
	bars := flatBars(constant(40, 100)).Bars
	bars[38] = model.OHLCV{Time: dateAt(38), Open: 100, High: 100, Low: 70, Close: 70}
	bars[39] = model.OHLCV{Time: dateAt(39), Open: 70, High: 70, Low: 40, Close: 40}
	s := model.Series{Bars: bars}
	if got, err := runRule(t, checkS7, sellInput(s, s, 0, 100, 0)); err != nil || !got {
		t.Errorf("two wide bearish bodies should trigger S7: %v %v", got, err)
	}
}

func TestS9(t *testing.T) {
	flat := flatBars(constant(100, 100))
	if got, err := runRule(t, checkS9, sellInput(flat, flat, 0, 100, 0)); err != nil || !got {
		t.Errorf("zero energy should trigger S9: %v %v", got, err)
	}
	short := flatBars(constant(30, 100))
	if _, err := runRule(t, checkS9, sellInput(short, short, 0, 100, 0)); !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("want insufficient history, got %v", err)
	}
}

func TestS11_S12_FibBreakdown(t *testing.T) {
	s := flatBars(concat(constant(300, 200), constant(100, 100)))
	in := sellInput(s, s, 0, 200, 0)
	if got, err := runRule(t, checkS11, in); err != nil || !got {
		t.Errorf("S11: %v %v", got, err)
	}
	if got, err := runRule(t, checkS12, in); err != nil || !got {
		t.Errorf("S12: %v %v", got, err)
	}
	if got, _ := runRule(t, checkS13, in); got {
		t.Error("S13: an equal close is not a new 80-day low")
	}
	flat := flatBars(constant(400, 100))
	if got, err := runRule(t, checkS11, sellInput(flat, flat, 0, 100, 0)); err != nil || got {
		t.Errorf("degenerate range must be false without error: %v %v", got, err)
	}
}

func TestS13(t *testing.T) {
	s := flatBars(concat(constant(299, 100), []float64{90}))
	if got, err := runRule(t, checkS13, sellInput(s, s, 0, 100, 0)); err != nil || !got {
		t.Errorf("new 80-day closing low should trigger S13: %v %v", got, err)
	}
}

func TestS14(t *testing.T) {
	stock := flatBars(constant(420, 100))
	bench := flatBars(ascending(420, 100, 1))
	if got, err := runRule(t, checkS14, sellInput(stock, bench, 0, 100, 0)); err != nil || !got {
		t.Errorf("lagging on all horizons should trigger S14: %v %v", got, err)
	}
	if got, _ := runRule(t, checkS14, sellInput(bench, stock, 0, 100, 0)); got {
		t.Error("leading stock must not trigger S14")
	}
}

func TestS15_S16(t *testing.T) {
	crash := flatBars(concat(constant(6, 100), []float64{70}))
	if got, err := runRule(t, checkS15, sellInput(crash, crash, 0, 100, 0)); err != nil || !got {
		t.Errorf("S15: %v %v", got, err)
	}
	slide := flatBars(concat(constant(30, 100), ascending(10, 97, -3)))
	if got, err := runRule(t, checkS16, sellInput(slide, slide, 0, 100, 0)); err != nil || !got {
		t.Errorf("S16: %v %v", got, err)
	}
}

func TestS17(t *testing.T) {
	s := flatBars(concat([]float64{200}, constant(148, 110), []float64{100}))
	if got, err := runRule(t, checkS17, sellInput(s, s, 0, 200, 0)); err != nil || !got {
		t.Errorf("close near the bottom of a wide range should trigger S17: %v %v", got, err)
	}

	p := DefaultParams()
	p.S17MinDays = 150
	got, err := checkS17(newSellContext(sellInput(s, s, 0, 200, 0), p))
	if err != nil || got {
		t.Errorf("with a 150-day gate and 149 days held: %v %v", got, err)
	}
}

func TestEvaluateSell_SortsInput(t *testing.T) {
	s := flatBars(concat(constant(300, 200), constant(100, 100)))
	shuffled := model.Series{Bars: append([]model.OHLCV(nil), s.Bars...)}
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled.Bars), func(i, j int) {
		shuffled.Bars[i], shuffled.Bars[j] = shuffled.Bars[j], shuffled.Bars[i]
	})
	a, errA := EvaluateSell(sellInput(s, s, 0, 200, 150), DefaultParams())
	b, errB := EvaluateSell(SellInput{
		Series:    shuffled,
		Benchmark: s,
		Position:  model.Position{EntryDate: dateAt(0), EntryPrice: 200, CurrentStop: 150},
		TradeDate: lastDate(s),
	}, DefaultParams())
	if (errA == nil) != (errB == nil) {
		t.Fatalf("error mismatch: %v vs %v", errA, errB)
	}
	for _, rule := range SellRules {
		if a[rule] != b[rule] {
			t.Errorf("%s differs after shuffling: %v vs %v", rule, a[rule], b[rule])
		}
	}
}

func TestRuleErrors(t *testing.T) {
	err := errors.Join(
		&RuleError{Rule: "S4", Err: &InsufficientHistoryError{Need: 200, Have: 10}},
		&RuleError{Rule: "S11", Err: ErrEntryOutOfRange},
	)
	got := RuleErrors(err)
	if len(got) != 2 || got["S11"] != ErrEntryOutOfRange.Error() {
		t.Errorf("unexpected flattening: %v", got)
	}
	if RuleErrors(nil) != nil {
		t.Error("nil error must flatten to nil")
	}
}
