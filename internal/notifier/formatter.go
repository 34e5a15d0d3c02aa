package notifier

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SignalScreener/internal/model"
	"SignalScreener/internal/pipeline"
	"SignalScreener/internal/recorder"
)

// price renders v with two decimals, or "-" when undefined.
func price(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func percent(v float64) string {
	return decimal.NewFromFloat(v*100).StringFixed(1) + "%"
}

// FormatRunReport formats a batch summary into a Telegram message.
func FormatRunReport(sum *pipeline.RunSummary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>SignalScreener</b> | %s\n\n", sum.TradeDate.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Symbols: %d | Buy: %d | Sell: %d | Failed: %d\n",
		sum.Symbols, sum.Buys, sum.Sells, sum.Failed))

	var buys, sells []*model.SignalResult
	for _, res := range sum.Results {
		switch res.Action {
		case model.ActionBuy:
			buys = append(buys, res)
		case model.ActionSell:
			sells = append(sells, res)
		}
	}

	if len(buys) > 0 {
		b.WriteString("\n🟢 <b>Buy at next open:</b>\n")
		for _, res := range buys {
			b.WriteString("  " + FormatSignal(res) + "\n")
		}
	}
	if len(sells) > 0 {
		b.WriteString("\n🔴 <b>Sell at next open:</b>\n")
		for _, res := range sells {
			b.WriteString("  " + FormatSignal(res) + "\n")
		}
	}
	if len(buys) == 0 && len(sells) == 0 {
		b.WriteString("\nNo actions today.\n")
	}

	if len(sum.Failures) > 0 {
		syms := make([]string, 0, len(sum.Failures))
		for sym := range sum.Failures {
			syms = append(syms, sym)
		}
		sort.Strings(syms)
		b.WriteString(fmt.Sprintf("\n⚠️ Failed: %s\n", strings.Join(syms, ", ")))
	}
	b.WriteString(fmt.Sprintf("\nRun %s (%s)", shortID(sum.RunID), sum.Finished.Sub(sum.Started).Round(time.Second)))
	return b.String()
}

// FormatSignal renders one result on a single line.
func FormatSignal(res *model.SignalResult) string {
	line := fmt.Sprintf("<b>%s</b> close %s stop %s energy %s",
		res.Symbol, price(res.Close), price(res.StopLoss), percent(res.EnergyScore))
	switch res.Action {
	case model.ActionSell:
		if fired := firedRules(res.Rules); len(fired) > 0 {
			line += " [" + strings.Join(fired, ",") + "]"
		}
		if res.EntryPrice > 0 {
			line += " P/L " + percent((res.Close-res.EntryPrice)/res.EntryPrice)
		}
	case model.ActionBuy:
		if res.Rules["B18"] {
			line += " [B18]"
		}
	}
	return line
}

// firedRules returns the true sell rules in evaluation order.
func firedRules(rules map[string]bool) []string {
	var out []string
	for _, name := range []string{"S1", "S4", "S5", "S6", "S7", "S8", "S9", "S10", "S11", "S12", "S13", "S14", "S15", "S16", "S17"} {
		if rules[name] {
			out = append(out, name)
		}
	}
	return out
}

// FormatPositions lists the open positions of the book.
func FormatPositions(entries map[string]model.BookEntry) string {
	syms := make([]string, 0, len(entries))
	for sym, e := range entries {
		if e.Status == model.StatusInPosition {
			syms = append(syms, sym)
		}
	}
	if len(syms) == 0 {
		return "📦 No open positions."
	}
	sort.Strings(syms)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>Open positions</b> (%d)\n\n", len(syms)))
	for _, sym := range syms {
		e := entries[sym]
		b.WriteString(fmt.Sprintf("%s since %s @ %s, stop %s\n", sym, e.EntryDate, price(e.EntryPrice), price(e.Exit1)))
	}
	return b.String()
}

// FormatLastRun describes the most recent recorded run.
func FormatLastRun(run *recorder.RunRecord) string {
	if run == nil {
		return "No runs recorded yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🕒 <b>Last run</b> %s\n\n", shortID(run.RunID)))
	b.WriteString(fmt.Sprintf("Trade date: %s\n", run.TradeDate.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Status: %s\n", run.Status))
	b.WriteString(fmt.Sprintf("Started: %s\n", run.Started.Format("2006-01-02 15:04")))
	if !run.Finished.IsZero() {
		b.WriteString(fmt.Sprintf("Finished: %s\n", run.Finished.Format("2006-01-02 15:04")))
	}
	b.WriteString(fmt.Sprintf("Symbols: %d | Buy: %d | Sell: %d | Failed: %d\n", run.Symbols, run.Buys, run.Sells, run.Failed))
	if run.Note != "" {
		b.WriteString(fmt.Sprintf("Note: %s\n", run.Note))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
