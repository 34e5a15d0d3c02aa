package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"SignalScreener/internal/collector"
	"SignalScreener/internal/config"
	"SignalScreener/internal/lock"
	"SignalScreener/internal/metrics"
	"SignalScreener/internal/notifier"
	"SignalScreener/internal/pipeline"
	"SignalScreener/internal/position"
	"SignalScreener/internal/recorder"
	"SignalScreener/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] SignalScreener starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	loc, _ := time.LoadLocation(cfg.Schedule.Timezone)

	// Init fetcher
	var fetcher collector.Fetcher
	var barCache *collector.SQLiteSource
	switch cfg.DataSource.Provider {
	case "sqlite":
		src, err := collector.NewSQLiteSource(cfg.DataSource.SQLitePath)
		if err != nil {
			log.Fatalf("[FATAL] open bar store: %v", err)
		}
		defer src.Close()
		fetcher = src
	case "csv":
		fetcher = &collector.CSVSource{Dir: cfg.DataSource.CSVDir}
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
		if cfg.DataSource.Cache {
			if barCache, err = collector.NewSQLiteSource(cfg.DataSource.SQLitePath); err != nil {
				log.Printf("[WARN] open bar cache, continuing without: %v", err)
			} else {
				defer barCache.Close()
			}
		}
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	col := collector.NewCollector(fetcher)
	col.Limit = cfg.DataSource.Limit
	if barCache != nil {
		col.Store = barCache
	}

	// Init position book
	var book position.Book
	var fileBook *position.FileBook
	if cfg.Position.Provider == "remote" {
		book = position.NewRemoteBook(cfg.Position.BaseURL, cfg.Position.APIKey, cfg.Proxy)
	} else {
		fileBook, err = position.NewFileBook(cfg.Position.StateFile)
		if err != nil {
			log.Fatalf("[FATAL] init position book: %v", err)
		}
		book = fileBook
	}
	log.Printf("[INFO] position book: %s", book.Name())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init run lock
	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		rl, err := lock.NewRedisLocker(lock.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatalf("[FATAL] init redis locker: %v", err)
		}
		defer rl.Close()
		locker = rl
	} else {
		fl, err := lock.NewFileLocker(cfg.Runner.LockDir)
		if err != nil {
			log.Fatalf("[FATAL] init file locker: %v", err)
		}
		locker = fl
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	var ms *metrics.Server
	if cfg.Metrics.Addr != "" {
		ms = metrics.NewServer(cfg.Metrics.Addr, reg)
		ms.Start()
	}

	runner := &pipeline.Runner{
		Collector: col,
		Book:      book,
		Recorder:  rec,
		Locker:    locker,
		Metrics:   m,
		Params:    cfg.Strategy,
		Symbols:   cfg.Universe.Symbols,
		Benchmark: cfg.Universe.Benchmark,
		Workers:   cfg.Runner.Workers,
		LockTTL:   cfg.Runner.LockTTL,
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, runner, tn, rec, loc, cfg.Schedule.RetryDelay)
	if fileBook != nil {
		sched.Positions = fileBook
	}
	if err := sched.RegisterAll(cfg.Schedule.DailyCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing daily run now")
		go sched.RunNow()
	}

	log.Printf("[INFO] SignalScreener is running with %d symbols. Press Ctrl+C to stop.", len(cfg.Universe.Symbols))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	if ms != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		ms.Stop(shutdownCtx)
		stop()
	}
	log.Println("[INFO] SignalScreener stopped")
}
