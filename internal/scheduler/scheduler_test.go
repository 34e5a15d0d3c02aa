package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"SignalScreener/internal/lock"
	"SignalScreener/internal/model"
	"SignalScreener/internal/pipeline"
	"SignalScreener/internal/recorder"
)

type fakeRunner struct {
	mu    sync.Mutex
	errs  []error
	dates []time.Time
}

func (f *fakeRunner) Run(_ context.Context, d time.Time) (*pipeline.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, d)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &pipeline.RunSummary{RunID: "r1", TradeDate: d, Symbols: 2}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

type fakeBook map[string]model.BookEntry

func (b fakeBook) Entries() map[string]model.BookEntry { return b }

func newTestScheduler(r *fakeRunner, snd *fakeSender) (*Scheduler, *[]time.Duration) {
	loc := time.FixedZone("HKT", 8*3600)
	s := NewScheduler(context.Background(), r, snd, recorder.NewNoopRecorder(), loc, 30*time.Minute)
	// 2025-06-13 23:30 UTC is already 2025-06-14 in HKT.
	s.now = func() time.Time { return time.Date(2025, 6, 13, 23, 30, 0, 0, time.UTC) }
	var delays []time.Duration
	s.afterFunc = func(d time.Duration, f func()) {
		delays = append(delays, d)
		f()
	}
	return s, &delays
}

func TestRunNow_UsesLocalDate(t *testing.T) {
	r, snd := &fakeRunner{}, &fakeSender{}
	s, _ := newTestScheduler(r, snd)
	s.RunNow()
	if len(r.dates) != 1 || r.dates[0].Format(model.DateLayout) != "2025-06-14" {
		t.Fatalf("dates = %v", r.dates)
	}
	if len(snd.msgs) != 1 || !strings.Contains(snd.msgs[0], "2025-06-14") {
		t.Errorf("expected run report, got %v", snd.msgs)
	}
}

func TestRunNow_RetriesOnceWhenLocked(t *testing.T) {
	locked := fmt.Errorf("ta: %w", lock.ErrLocked)
	r := &fakeRunner{errs: []error{locked, locked}}
	snd := &fakeSender{}
	s, delays := newTestScheduler(r, snd)

	s.RunNow()
	if len(r.dates) != 2 {
		t.Fatalf("expected one retry, got %d runs", len(r.dates))
	}
	if len(*delays) != 1 || (*delays)[0] != 30*time.Minute {
		t.Errorf("delays = %v", *delays)
	}
	if len(snd.msgs) != 2 || !strings.Contains(snd.msgs[0], "Retrying") || strings.Contains(snd.msgs[1], "Retrying") {
		t.Errorf("unexpected messages %v", snd.msgs)
	}
}

func TestRunNow_NoRetryForOtherErrors(t *testing.T) {
	r := &fakeRunner{errs: []error{pipeline.ErrFutureDate}}
	s, delays := newTestScheduler(r, &fakeSender{})
	s.RunNow()
	if len(r.dates) != 1 || len(*delays) != 0 {
		t.Errorf("runs=%d delays=%v", len(r.dates), *delays)
	}
}

func TestHandleCommand(t *testing.T) {
	r, snd := &fakeRunner{}, &fakeSender{}
	s, _ := newTestScheduler(r, snd)

	if got := s.HandleCommand(context.Background(), "/positions"); !strings.Contains(got, "remotely") {
		t.Errorf("/positions without book: %q", got)
	}
	s.Positions = fakeBook{"0700": {Status: model.StatusInPosition, EntryDate: "2025-06-01", EntryPrice: 1, Exit1: 0.9}}
	if got := s.HandleCommand(context.Background(), "/positions"); !strings.Contains(got, "0700") {
		t.Errorf("/positions: %q", got)
	}
	if got := s.HandleCommand(context.Background(), "/last"); got != "No runs recorded yet." {
		t.Errorf("/last: %q", got)
	}
	if got := s.HandleCommand(context.Background(), "/run 13-06-2025"); !strings.Contains(got, "Invalid date") {
		t.Errorf("/run bad date: %q", got)
	}
	if got := s.HandleCommand(context.Background(), "hello"); !strings.Contains(got, "/run") {
		t.Errorf("help: %q", got)
	}
}
