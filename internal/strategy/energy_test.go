package strategy

import (
	"errors"
	"math"
	"testing"

	"SignalScreener/internal/model"
)

func TestEnergy_ScoreIsOnesOverEighty(t *testing.T) {
	tests := []struct {
		name  string
		stock []float64
		bench []float64
		ones  int
	}{
		// Flat: every sub-indicator is defined and 0.
		{"flat", constant(120, 100), constant(120, 100), 0},
		// Rising vs flat benchmark: E3, E4, E5 on every bar.
		{"rising vs flat", ascending(120, 100, 1), constant(120, 100), 48},
		// Rising vs a faster benchmark: E3 and E5 only.
		{"rising vs faster", ascending(120, 100, 1), ascending(120, 100, 5), 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := flatBars(tt.stock)
			res, err := EvaluateEnergy(lastDate(s), s, flatBars(tt.bench), DefaultParams(), WindowTrailing)
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Records) != 16 {
				t.Fatalf("want 16 records, got %d", len(res.Records))
			}
			for _, r := range res.Records {
				for _, f := range r.E {
					if !f.Defined() {
						t.Fatalf("unexpected N/A on %s", r.Date.Format(model.DateLayout))
					}
				}
			}
			if want := float64(tt.ones) / 80; res.Score != want {
				t.Errorf("score = %v, want %v", res.Score, want)
			}
			if !res.Latest().IsLatest || res.Records[0].IsLatest {
				t.Error("only the trade-date record is latest")
			}
		})
	}
}

func TestEnergy_NotApplicableBeforeMinBars(t *testing.T) {
	s := flatBars(ascending(70, 100, 1))
	res, err := EvaluateEnergy(lastDate(s), s, flatBars(constant(70, 100)), DefaultParams(), WindowTrailing)
	if err != nil {
		t.Fatal(err)
	}
	na := 0
	for _, r := range res.Records {
		if r.E[0] == model.FlagNA {
			na++
			for _, f := range r.E {
				if f != model.FlagNA {
					t.Fatal("N/A must cover all five indicators")
				}
			}
		}
	}
	if na != 12 {
		t.Errorf("want 12 N/A bars (indices 54..65), got %d", na)
	}
	if want := 12.0 / 80; res.Score != want {
		t.Errorf("score = %v, want %v", res.Score, want)
	}
	if model.FlagNA.String() != "N/A" {
		t.Error("sentinel must render as N/A")
	}
}

func TestEnergy_AllNotApplicableScoresZero(t *testing.T) {
	s := flatBars(ascending(40, 100, 1))
	res, err := EvaluateEnergy(lastDate(s), s, s, DefaultParams(), WindowTrailing)
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 0 {
		t.Errorf("score = %v, want 0", res.Score)
	}
}

func TestEnergy_SingleWindowKeepsScore(t *testing.T) {
	s := flatBars(ascending(120, 100, 1))
	bench := flatBars(constant(120, 100))
	trailing, _ := EvaluateEnergy(lastDate(s), s, bench, DefaultParams(), WindowTrailing)
	single, err := EvaluateEnergy(lastDate(s), s, bench, DefaultParams(), WindowSingle)
	if err != nil {
		t.Fatal(err)
	}
	if len(single.Records) != 1 || !single.Records[0].IsLatest {
		t.Fatalf("single mode returns only the latest record, got %d", len(single.Records))
	}
	if single.Score != trailing.Score {
		t.Errorf("score must not depend on the window mode: %v vs %v", single.Score, trailing.Score)
	}
}

func TestEnergy_TradeDateBetweenBars(t *testing.T) {
	s := flatBars(ascending(120, 100, 1))
	// Drop the last bar; the trade date then falls after the final bar.
	res, err := EvaluateEnergy(dateAt(119), s.Head(119), s, DefaultParams(), WindowSingle)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Latest().Date; !got.Equal(dateAt(118)) {
		t.Errorf("want last bar on or before the trade date, got %s", got)
	}
	if _, err := EvaluateEnergy(dateAt(-1), s, s, DefaultParams(), WindowSingle); !errors.Is(err, ErrTradeDateNotFound) {
		t.Errorf("want ErrTradeDateNotFound, got %v", err)
	}
}

func TestEnergy_LookbackFloor(t *testing.T) {
	// 900 calendar days; only the last 24 months are kept.
	s := flatBars(ascending(900, 100, 1))
	res, err := EvaluateEnergy(lastDate(s), s, s, DefaultParams(), WindowSingle)
	if err != nil {
		t.Fatal(err)
	}
	if res.TargetIndex >= 900-1 || res.TargetIndex < 700 {
		t.Errorf("target index %d does not reflect a 24-month trim", res.TargetIndex)
	}
}

func TestE4_MissingBenchmarkDate(t *testing.T) {
	s := flatBars(ascending(120, 100, 1))
	bench := flatBars(constant(119, 100))
	res, _ := EvaluateEnergy(lastDate(s), s, bench, DefaultParams(), WindowSingle)
	if res.Latest().E[3] != model.FlagOff {
		t.Error("E4 must be 0 when the benchmark has no bar on that date")
	}
}

func TestStopLoss(t *testing.T) {
	alternate := func(n int, hi, lo float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			if (n-1-i)%2 == 0 {
				out[i] = hi
			} else {
				out[i] = lo
			}
		}
		return out
	}
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{"base stop", ascending(70, 10, 1), 79 - 3.7},
		{"risk above 30%", alternate(30, 100, 50), 85.75},
		{"risk above 20%", alternate(30, 100, 93), 90.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StopLoss(flatBars(tt.closes), DefaultParams())
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("StopLoss = %v, want %v", got, tt.want)
			}
		})
	}
	if !math.IsNaN(StopLoss(flatBars(ascending(22, 10, 1)), DefaultParams())) {
		t.Error("22 bars must give NaN")
	}
	if !math.IsNaN(StopLoss(flatBars(constant(30, 0)), DefaultParams())) {
		t.Error("non-positive close must give NaN")
	}
}
