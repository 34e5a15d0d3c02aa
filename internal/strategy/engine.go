package strategy

import (
	"math"
	"time"

	"SignalScreener/internal/model"
	"SignalScreener/internal/series"
)

// Request is one symbol evaluated on one trade date.
type Request struct {
	Symbol    string
	Series    model.Series
	Benchmark model.Series
	TradeDate time.Time
	// Position is nil when the symbol is flat.
	Position *model.Position
}

// Evaluate computes the full signal for req. Bars dated after the trade date
// are ignored. A flat symbol runs the buy path, an open position the sell
// path; the energy score is attached in both cases. Without a bar on the
// trade date no rule is evaluated and the action is N.
func Evaluate(req Request, p Params) *model.SignalResult {
	s := upTo(req.Series, req.TradeDate)
	bench := upTo(req.Benchmark, req.TradeDate)

	res := &model.SignalResult{
		Symbol:    req.Symbol,
		TradeDate: req.TradeDate,
		Action:    model.ActionNone,
		StopLoss:  math.NaN(),
		Errors:    map[string]string{},
	}
	if req.Position == nil {
		res.Status = model.StatusFlat
	} else {
		res.Status = model.StatusInPosition
	}
	if s.IndexOf(req.TradeDate) < 0 {
		res.Rules = map[string]bool{}
		res.Errors["series"] = ErrTradeDateNotFound.Error()
		return res
	}
	res.Close = s.Last().Close

	if req.Position == nil {
		res.Rules = EvaluateBuy(s, bench, req.TradeDate, p)
		res.IsBuy = IsBuy(res.Rules)
		if res.IsBuy {
			res.Action = model.ActionBuy
		}
		res.StopLoss = StopLoss(s, p)
	} else {
		res.EntryPrice = req.Position.EntryPrice
		res.StopLoss = req.Position.CurrentStop
		rules, err := EvaluateSell(SellInput{
			Series:    s,
			Benchmark: bench,
			Position:  *req.Position,
			TradeDate: req.TradeDate,
		}, p)
		res.Rules = rules
		for rule, msg := range RuleErrors(err) {
			res.Errors[rule] = msg
		}
		res.IsSell = IsSell(rules)
		if res.IsSell {
			res.Action = model.ActionSell
		}
	}

	energy, err := EvaluateEnergy(req.TradeDate, s, bench, p, WindowTrailing)
	if err != nil {
		res.Errors["energy"] = err.Error()
	} else {
		res.EnergyScore = energy.Score
		res.Energy = energy.Records
	}
	return res
}

func upTo(s model.Series, d time.Time) model.Series {
	s = series.SortByDate(s)
	return s.Head(s.LastIndexOnOrBefore(d) + 1)
}
