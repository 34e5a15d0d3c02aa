package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"SignalScreener/internal/model"
	"SignalScreener/internal/series"
)

// ErrNoData is returned when a source has no rows for a symbol.
var ErrNoData = errors.New("no data")

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	// Bars overrides the generated data per symbol.
	Bars map[string][]model.RawBar
	// FailFirst makes the first n calls fail.
	FailFirst int

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many times FetchDailyBars was invoked.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, tradeDate time.Time, limit int) ([]model.RawBar, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()
	if n <= m.FailFirst {
		return nil, fmt.Errorf("mock failure %d", n)
	}
	if rows, ok := m.Bars[symbol]; ok {
		return rows, nil
	}
	return generateMockBars(symbol, m.Price, tradeDate, limit), nil
}

func generateMockBars(symbol string, basePrice float64, end time.Time, count int) []model.RawBar {
	bars := make([]model.RawBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.RawBar{
			Symbol: symbol,
			Date:   end.AddDate(0, 0, -(count - 1 - i)).Format(model.DateLayout),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches raw rows with retries and turns them into a Series.
type Collector struct {
	Fetcher    Fetcher
	Store      BarStore // optional write-through cache
	Attempts   int
	RetryDelay time.Duration
	Limit      int
}

// NewCollector creates a Collector with 3 attempts, 1s apart, and a 300-bar limit.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher, Attempts: 3, RetryDelay: time.Second, Limit: 300}
}

// Collect fetches symbol's bars up to tradeDate and normalizes them.
// An empty response counts as a failed attempt.
func (c *Collector) Collect(ctx context.Context, symbol string, tradeDate time.Time) (model.Series, error) {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var rows []model.RawBar
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		rows, err = c.Fetcher.FetchDailyBars(ctx, symbol, tradeDate, c.Limit)
		if err == nil && len(rows) > 0 {
			break
		}
		if err == nil {
			err = fmt.Errorf("%s: %w", symbol, ErrNoData)
		}
		log.Printf("[WARN] %s fetch %s (attempt %d/%d): %v", c.Fetcher.Name(), symbol, attempt, attempts, err)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return model.Series{}, ctx.Err()
			case <-time.After(c.RetryDelay):
			}
		}
	}
	if err != nil {
		return model.Series{}, fmt.Errorf("fetch daily bars: %w", err)
	}

	if c.Store != nil {
		if err := c.Store.SaveBars(ctx, rows); err != nil {
			log.Printf("[WARN] cache %s bars: %v", symbol, err)
		}
	}

	s := series.Build(symbol, rows, time.Time{})
	if s.Len() == 0 {
		return s, fmt.Errorf("%s: no valid bars: %w", symbol, ErrNoData)
	}
	return s, nil
}
