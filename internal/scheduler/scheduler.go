package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"SignalScreener/internal/lock"
	"SignalScreener/internal/model"
	"SignalScreener/internal/notifier"
	"SignalScreener/internal/pipeline"
	"SignalScreener/internal/recorder"
)

// Runner executes one batch for a trade date.
type Runner interface {
	Run(ctx context.Context, tradeDate time.Time) (*pipeline.RunSummary, error)
}

// Sender delivers messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// PositionLister exposes the local position book for /positions.
type PositionLister interface {
	Entries() map[string]model.BookEntry
}

// Scheduler manages the daily run, its retry and user commands.
type Scheduler struct {
	Cron       *cron.Cron
	Runner     Runner
	Notifier   Sender
	Recorder   recorder.Recorder
	Positions  PositionLister // nil when positions live remotely
	Location   *time.Location
	RetryDelay time.Duration
	Ctx        context.Context

	now       func() time.Time
	afterFunc func(d time.Duration, f func())
}

// NewScheduler creates a new Scheduler evaluating trade dates in loc.
func NewScheduler(ctx context.Context, runner Runner, sender Sender, rec recorder.Recorder, loc *time.Location, retryDelay time.Duration) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Runner:     runner,
		Notifier:   sender,
		Recorder:   rec,
		Location:   loc,
		RetryDelay: retryDelay,
		Ctx:        ctx,
		now:        time.Now,
		afterFunc:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// RegisterAll registers the daily run.
func (s *Scheduler) RegisterAll(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the run for today immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.runFor(s.today(), true)
}

func (s *Scheduler) today() time.Time {
	now := s.now().In(s.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Scheduler) dailyTask() {
	log.Println("[INFO] running daily task")
	s.runFor(s.today(), true)
}

// runFor runs tradeDate and reports the outcome. A run blocked by a held
// lock or a missing benchmark is retried once after RetryDelay.
func (s *Scheduler) runFor(tradeDate time.Time, allowRetry bool) {
	day := tradeDate.Format(model.DateLayout)
	sum, err := s.Runner.Run(s.Ctx, tradeDate)
	if err != nil {
		log.Printf("[ERROR] run %s: %v", day, err)
		if allowRetry && retriable(err) && s.RetryDelay > 0 {
			s.trySend(fmt.Sprintf("❌ Run %s failed: %v\nRetrying in %s", day, err, s.RetryDelay))
			s.afterFunc(s.RetryDelay, func() {
				log.Printf("[INFO] retrying run %s", day)
				s.runFor(tradeDate, false)
			})
			return
		}
		s.trySend(fmt.Sprintf("❌ Run %s failed: %v", day, err))
		return
	}
	s.trySend(notifier.FormatRunReport(sum))
}

func retriable(err error) bool {
	return errors.Is(err, lock.ErrLocked) || errors.Is(err, pipeline.ErrBenchmark)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help()
	}
	switch fields[0] {
	case "/run":
		tradeDate := s.today()
		if len(fields) > 1 {
			d, err := time.Parse(model.DateLayout, fields[1])
			if err != nil {
				return fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", fields[1])
			}
			tradeDate = d
		}
		go s.runFor(tradeDate, false)
		return fmt.Sprintf("⏳ Running %s...", tradeDate.Format(model.DateLayout))
	case "/positions":
		if s.Positions == nil {
			return "Positions are managed remotely."
		}
		return notifier.FormatPositions(s.Positions.Entries())
	case "/last":
		run, err := s.Recorder.LastRun()
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatLastRun(run)
	default:
		return help()
	}
}

func help() string {
	return "Commands:\n• /run [YYYY-MM-DD]\n• /positions\n• /last"
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
