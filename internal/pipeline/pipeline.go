// Package pipeline runs the daily batch: a TA pass over every symbol, then an
// energy pass once all symbols have been collected.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"SignalScreener/internal/collector"
	"SignalScreener/internal/lock"
	"SignalScreener/internal/metrics"
	"SignalScreener/internal/model"
	"SignalScreener/internal/position"
	"SignalScreener/internal/recorder"
	"SignalScreener/internal/strategy"
)

var (
	ErrFutureDate = errors.New("trade date is in the future")
	ErrBenchmark  = errors.New("benchmark unavailable")
)

// Applier is implemented by books that track positions locally.
type Applier interface {
	Apply(res *model.SignalResult) error
}

// RunSummary is the outcome of one batch run.
type RunSummary struct {
	RunID     string
	TradeDate time.Time
	Symbols   int
	Buys      int
	Sells     int
	Failed    int
	Started   time.Time
	Finished  time.Time
	Results   []*model.SignalResult
	// Failures maps symbol to the error that stopped it.
	Failures map[string]string
}

// Runner wires collection, evaluation and persistence for a symbol universe.
type Runner struct {
	Collector *collector.Collector
	Book      position.Book
	Recorder  recorder.Recorder
	Locker    lock.Locker
	Metrics   *metrics.Metrics
	Params    strategy.Params

	Symbols   []string
	Benchmark string
	Workers   int
	LockTTL   time.Duration

	Now func() time.Time
}

// Run evaluates every symbol on tradeDate. Failures of single symbols are
// counted in the summary; only a missing benchmark, a held lock or a future
// date fail the run.
func (r *Runner) Run(ctx context.Context, tradeDate time.Time) (*RunSummary, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	started := now()
	tradeDate = time.Date(tradeDate.Year(), tradeDate.Month(), tradeDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(started.Year(), started.Month(), started.Day(), 0, 0, 0, 0, time.UTC)
	if tradeDate.After(today) {
		return nil, fmt.Errorf("%s: %w", tradeDate.Format(model.DateLayout), ErrFutureDate)
	}
	m := r.Metrics
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}

	release, err := r.Locker.Acquire(ctx, "ta:"+tradeDate.Format(model.DateLayout), r.lockTTL())
	if err != nil {
		m.RunsTotal.WithLabelValues("locked").Inc()
		return nil, err
	}
	defer release()

	sum := &RunSummary{
		RunID:     uuid.NewString(),
		TradeDate: tradeDate,
		Symbols:   len(r.Symbols),
		Started:   started,
		Failures:  map[string]string{},
	}
	run := &recorder.RunRecord{RunID: sum.RunID, TradeDate: tradeDate, Started: started, Symbols: sum.Symbols, Status: "RUNNING"}
	if err := r.Recorder.RecordRun(run); err != nil {
		log.Printf("[WARN] record run start: %v", err)
	}
	log.Printf("[INFO] run %s: %d symbols on %s", sum.RunID, len(r.Symbols), tradeDate.Format(model.DateLayout))

	bench, err := r.Collector.Collect(ctx, r.Benchmark, tradeDate)
	if err != nil {
		err = fmt.Errorf("%s: %w: %v", r.Benchmark, ErrBenchmark, err)
		r.finish(sum, run, m, now, "FAILED", err.Error())
		return sum, err
	}

	r.taPass(ctx, sum, bench, m)
	r.energyPass(sum, m)

	r.finish(sum, run, m, now, "DONE", "")
	log.Printf("[INFO] run %s done: %d buys, %d sells, %d failed", sum.RunID, sum.Buys, sum.Sells, sum.Failed)
	return sum, ctx.Err()
}

func (r *Runner) lockTTL() time.Duration {
	if r.LockTTL > 0 {
		return r.LockTTL
	}
	return 2 * time.Hour
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return 4
}

// taPass fans out over symbols and collects one result per evaluated symbol.
func (r *Runner) taPass(ctx context.Context, sum *RunSummary, bench model.Series, m *metrics.Metrics) {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for _, sym := range r.Symbols {
		sym := sym
		g.Go(func() error {
			start := time.Now()
			res, err := r.evaluate(gctx, sym, sum, bench)
			m.SymbolDuration.Observe(time.Since(start).Seconds())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[ERROR] %s: %v", sym, err)
				sum.Failed++
				sum.Failures[sym] = err.Error()
				m.SymbolsTotal.WithLabelValues("failed").Inc()
				return nil
			}
			sum.Results = append(sum.Results, res)
			switch res.Action {
			case model.ActionBuy:
				sum.Buys++
				m.SymbolsTotal.WithLabelValues("buy").Inc()
			case model.ActionSell:
				sum.Sells++
				m.SymbolsTotal.WithLabelValues("sell").Inc()
			default:
				m.SymbolsTotal.WithLabelValues("none").Inc()
			}
			for rule := range res.Errors {
				m.RuleErrorsTotal.WithLabelValues(rule).Inc()
			}
			return nil
		})
	}
	g.Wait()

	sort.Slice(sum.Results, func(i, j int) bool { return sum.Results[i].Symbol < sum.Results[j].Symbol })
}

// evaluate runs one symbol. A symbol without a bar on the trade date is a
// failure: its last close would be stale.
func (r *Runner) evaluate(ctx context.Context, sym string, sum *RunSummary, bench model.Series) (*model.SignalResult, error) {
	s, err := r.Collector.Collect(ctx, sym, sum.TradeDate)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	idx := s.IndexOf(sum.TradeDate)
	if idx < 0 {
		return nil, fmt.Errorf("%s: %w", sum.TradeDate.Format(model.DateLayout), strategy.ErrTradeDateNotFound)
	}
	var prevDate time.Time
	if idx > 0 {
		prevDate = s.Bars[idx-1].Time
	}
	pos, err := r.Book.Lookup(ctx, sym, sum.TradeDate, prevDate)
	if err != nil {
		return nil, fmt.Errorf("position lookup: %w", err)
	}

	res := strategy.Evaluate(strategy.Request{
		Symbol:    sym,
		Series:    s,
		Benchmark: bench,
		TradeDate: sum.TradeDate,
		Position:  pos,
	}, r.Params)

	if err := r.Recorder.RecordSignal(sum.RunID, res); err != nil {
		log.Printf("[WARN] record signal %s: %v", sym, err)
	}
	if snap, err := strategy.Snapshot(s, bench, sum.TradeDate); err == nil {
		if err := r.Recorder.RecordSnapshot(sum.RunID, sym, sum.TradeDate, snap); err != nil {
			log.Printf("[WARN] record snapshot %s: %v", sym, err)
		}
	}
	if a, ok := r.Book.(Applier); ok {
		if err := a.Apply(res); err != nil {
			log.Printf("[ERROR] apply %s to book: %v", sym, err)
		}
	}
	return res, nil
}

// energyPass records the energy window each evaluation attached, once every
// symbol of the TA pass is done.
func (r *Runner) energyPass(sum *RunSummary, m *metrics.Metrics) {
	for _, res := range sum.Results {
		if len(res.Energy) == 0 {
			continue
		}
		m.EnergyScore.Observe(res.EnergyScore)
		if err := r.Recorder.RecordEnergy(sum.RunID, res.Symbol, res.EnergyScore, res.Energy); err != nil {
			log.Printf("[WARN] record energy %s: %v", res.Symbol, err)
		}
	}
}

func (r *Runner) finish(sum *RunSummary, run *recorder.RunRecord, m *metrics.Metrics, now func() time.Time, status, note string) {
	sum.Finished = now()
	run.Finished = sum.Finished
	run.Buys, run.Sells, run.Failed = sum.Buys, sum.Sells, sum.Failed
	run.Status, run.Note = status, note
	if err := r.Recorder.RecordRun(run); err != nil {
		log.Printf("[WARN] record run end: %v", err)
	}
	m.RunsTotal.WithLabelValues(strings.ToLower(status)).Inc()
	m.RunDuration.Observe(sum.Finished.Sub(sum.Started).Seconds())
	m.LastRunTime.Set(float64(sum.Finished.Unix()))
}
