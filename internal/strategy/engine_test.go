package strategy

import (
	"math"
	"math/rand"
	"testing"

	"SignalScreener/internal/model"
	"SignalScreener/internal/series"
)

func TestEvaluate_FlatPositionBuys(t *testing.T) {
	s := flatBars(trendTemplate())
	res := Evaluate(Request{Symbol: "0700", Series: s, Benchmark: s, TradeDate: lastDate(s)}, DefaultParams())
	if res.Status != model.StatusFlat {
		t.Errorf("status = %s, want F", res.Status)
	}
	if !res.IsBuy || res.Action != model.ActionBuy {
		t.Errorf("expected a buy, got action %s rules %v", res.Action, res.Rules)
	}
	if math.IsNaN(res.StopLoss) || res.StopLoss >= res.Close {
		t.Errorf("stop %v must be defined and below close %v", res.StopLoss, res.Close)
	}
	if len(res.Energy) != 16 {
		t.Errorf("want 16 energy records, got %d", len(res.Energy))
	}
	if len(res.Rules) != len(BuyRules) {
		t.Errorf("want %d buy rules, got %d", len(BuyRules), len(res.Rules))
	}
}

func TestEvaluate_OpenPositionSells(t *testing.T) {
	s := flatBars(ascending(120, 10, 1))
	pos := &model.Position{EntryDate: dateAt(10), EntryPrice: 20, CurrentStop: 500}
	res := Evaluate(Request{Symbol: "0005", Series: s, Benchmark: s, TradeDate: lastDate(s), Position: pos}, DefaultParams())
	if res.Status != model.StatusInPosition {
		t.Errorf("status = %s, want I", res.Status)
	}
	if !res.IsSell || res.Action != model.ActionSell {
		t.Errorf("S1 should force a sell, got %s", res.Action)
	}
	if res.StopLoss != 500 || res.EntryPrice != 20 {
		t.Errorf("position fields not carried: stop=%v entry=%v", res.StopLoss, res.EntryPrice)
	}
	if _, ok := res.Errors["S4"]; !ok {
		t.Errorf("expected S4 insufficient-history error, got %v", res.Errors)
	}
}

func TestEvaluate_IgnoresBarsAfterTradeDate(t *testing.T) {
	s := flatBars(ascending(120, 10, 1))
	res := Evaluate(Request{Series: s, Benchmark: s, TradeDate: dateAt(99)}, DefaultParams())
	if res.Close != 109 {
		t.Errorf("close = %v, want the trade-date bar's close 109", res.Close)
	}
}

func TestEvaluate_NoHistory(t *testing.T) {
	res := Evaluate(Request{Symbol: "EMPTY", TradeDate: day0}, DefaultParams())
	if res.IsBuy || res.Action != model.ActionNone {
		t.Error("empty series must not buy")
	}
	if !math.IsNaN(res.StopLoss) {
		t.Error("stop must be NaN without history")
	}
	if _, ok := res.Errors["series"]; !ok {
		t.Error("expected a series error without bars")
	}
}

func TestEvaluate_NoBarOnTradeDate(t *testing.T) {
	s := flatBars(trendTemplate())
	// The template buys on its last bar; a later trade date must not reuse it.
	tradeDate := lastDate(s).AddDate(0, 0, 3)
	for _, pos := range []*model.Position{nil, {EntryDate: dateAt(10), EntryPrice: 20, CurrentStop: 1e9}} {
		res := Evaluate(Request{Symbol: "0700", Series: s, Benchmark: s, TradeDate: tradeDate, Position: pos}, DefaultParams())
		if res.Action != model.ActionNone || res.IsBuy || res.IsSell {
			t.Errorf("position %v: action = %s, want N", pos, res.Action)
		}
		if len(res.Rules) != 0 || res.Close != 0 || len(res.Energy) != 0 {
			t.Errorf("position %v: nothing should be evaluated, got rules=%v close=%v", pos, res.Rules, res.Close)
		}
		if res.Errors["series"] != ErrTradeDateNotFound.Error() {
			t.Errorf("position %v: errors = %v", pos, res.Errors)
		}
	}
}

func TestEvaluate_ShuffledInputMatchesSorted(t *testing.T) {
	sorted := flatBars(trendTemplate())
	raw := make([]model.RawBar, sorted.Len())
	for i, b := range sorted.Bars {
		raw[i] = model.RawBar{Date: b.DateKey(), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
	}
	rand.New(rand.NewSource(11)).Shuffle(len(raw), func(i, j int) { raw[i], raw[j] = raw[j], raw[i] })
	rebuilt := series.Build("TEST", raw, day0.AddDate(-1, 0, 0))

	p := DefaultParams()
	a := Evaluate(Request{Series: sorted, Benchmark: sorted, TradeDate: lastDate(sorted)}, p)
	b := Evaluate(Request{Series: rebuilt, Benchmark: rebuilt, TradeDate: lastDate(sorted)}, p)
	for _, rule := range BuyRules {
		if a.Rules[rule] != b.Rules[rule] {
			t.Errorf("%s differs: %v vs %v", rule, a.Rules[rule], b.Rules[rule])
		}
	}
	if a.StopLoss != b.StopLoss || a.EnergyScore != b.EnergyScore {
		t.Errorf("numeric fields differ: %v/%v vs %v/%v", a.StopLoss, a.EnergyScore, b.StopLoss, b.EnergyScore)
	}
}

func TestSnapshot(t *testing.T) {
	s := flatBars(ascending(300, 100, 1))
	bench := flatBars(constant(300, 50))
	snap, err := Snapshot(s, bench, dateAt(299))
	if err != nil {
		t.Fatal(err)
	}
	if snap.High20 != 399 || snap.Low20 != 380 || snap.Low250 != 150 {
		t.Errorf("unexpected ranges: %+v", snap)
	}
	if snap.RSI14 == nil || *snap.RSI14 != 100 {
		t.Errorf("rising series RSI14 = %v, want 100", snap.RSI14)
	}
	if got := snap.PR[5]; got != 1.013 {
		t.Errorf("PR5 = %v, want 1.013 (399/394)", got)
	}
	if snap.UsedDays != 300 || snap.From != dateAt(0).Format(model.DateLayout) {
		t.Errorf("unexpected span: %d %s", snap.UsedDays, snap.From)
	}

	short, err := Snapshot(s, bench, dateAt(99))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := short.PR[125]; ok {
		t.Error("PR125 needs more than 125 aligned bars")
	}
	if _, err := Snapshot(s, bench, dateAt(400)); err == nil {
		t.Error("missing trade date must be an error")
	}
}
