package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"SignalScreener/internal/model"
)

var tradeDay = time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)

func TestCollect_RetriesThenSucceeds(t *testing.T) {
	m := &MockFetcher{Price: 100, FailFirst: 2}
	c := NewCollector(m)
	c.RetryDelay = 0
	s, err := c.Collect(context.Background(), "0700", tradeDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Calls() != 3 {
		t.Errorf("calls = %d, want 3", m.Calls())
	}
	if s.Len() != 300 || s.Last().DateKey() != "2025-04-10" {
		t.Errorf("unexpected series: len=%d last=%s", s.Len(), s.Last().DateKey())
	}
}

func TestCollect_GivesUpAfterAttempts(t *testing.T) {
	m := &MockFetcher{Price: 100, FailFirst: 5}
	c := NewCollector(m)
	c.RetryDelay = 0
	if _, err := c.Collect(context.Background(), "0700", tradeDay); err == nil {
		t.Fatal("expected error after 3 failed attempts")
	}
	if m.Calls() != 3 {
		t.Errorf("calls = %d, want 3", m.Calls())
	}
}

func TestCollect_EmptyIsNoData(t *testing.T) {
	m := &MockFetcher{Bars: map[string][]model.RawBar{"9999": {}}}
	c := NewCollector(m)
	c.RetryDelay = 0
	_, err := c.Collect(context.Background(), "9999", tradeDay)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("want ErrNoData, got %v", err)
	}
}

type memStore struct{ saved []model.RawBar }

func (m *memStore) SaveBars(_ context.Context, bars []model.RawBar) error {
	m.saved = append(m.saved, bars...)
	return nil
}

func TestCollect_WritesThrough(t *testing.T) {
	store := &memStore{}
	c := NewCollector(&MockFetcher{Price: 50})
	c.Store = store
	c.Limit = 10
	if _, err := c.Collect(context.Background(), "0005", tradeDay); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 10 {
		t.Errorf("saved %d rows, want 10", len(store.saved))
	}
}

func TestSQLiteSource_RoundTrip(t *testing.T) {
	src, err := NewSQLiteSource(filepath.Join(t.TempDir(), "bars.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	ctx := context.Background()
	rows := generateMockBars("0700", 300, tradeDay, 30)
	if err := src.SaveBars(ctx, rows); err != nil {
		t.Fatal(err)
	}
	// Re-saving a date updates in place.
	rows[29].Close = 999
	if err := src.SaveBars(ctx, rows[29:]); err != nil {
		t.Fatal(err)
	}

	got, err := src.FetchDailyBars(ctx, "0700", tradeDay.AddDate(0, 0, -1), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d rows, want 5", len(got))
	}
	if got[4].Date != "2025-04-09" || got[0].Date != "2025-04-05" {
		t.Errorf("unexpected window %s..%s", got[0].Date, got[4].Date)
	}

	latest, _ := src.FetchDailyBars(ctx, "0700", tradeDay, 1)
	if len(latest) != 1 || latest[0].Close != 999 {
		t.Errorf("upsert not applied: %+v", latest)
	}
}

func TestCSVSource(t *testing.T) {
	dir := t.TempDir()
	content := "Date,Open,High,Low,Close,Volume\n" +
		"2025-04-08,10,11,9,10.5,100\n" +
		"2025-04-09,10.5,12,10,11.5,\n" +
		"2025-04-10,,,,12,50\n" +
		"2025-04-11,12,13,11,12.5,10\n"
	if err := os.WriteFile(filepath.Join(dir, "0700.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	src := &CSVSource{Dir: dir}
	rows, err := src.FetchDailyBars(context.Background(), "0700", tradeDay, 300)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (future row dropped)", len(rows))
	}
	if rows[2].Open != 12 || rows[2].High != 12 {
		t.Errorf("missing OHL should fall back to close: %+v", rows[2])
	}
	if _, err := src.FetchDailyBars(context.Background(), "0005", tradeDay, 10); !errors.Is(err, ErrNoData) {
		t.Errorf("missing file: want ErrNoData, got %v", err)
	}
}

func TestYahooFetcher(t *testing.T) {
	// 2025-04-09 and 2025-04-10 at 09:30 HKT, then a null holiday bar.
	ts1 := time.Date(2025, 4, 9, 9, 30, 0, 0, hkt).Unix()
	ts2 := time.Date(2025, 4, 10, 9, 30, 0, 0, hkt).Unix()
	ts3 := time.Date(2025, 4, 11, 9, 30, 0, 0, hkt).Unix()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d,%d,%d],"indicators":{"quote":[{
			"open":[1,2,null],"high":[1.5,2.5,null],"low":[0.5,1.5,null],
			"close":[1.2,2.2,null],"volume":[10,20,null]}]}}],"error":null}}`, ts1, ts2, ts3)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	rows, err := f.FetchDailyBars(context.Background(), "700", tradeDay, 300)
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v8/finance/chart/0700.HK" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if len(rows) != 2 || rows[1].Date != "2025-04-10" || rows[1].Close != 2.2 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestYahooSymbol(t *testing.T) {
	f := NewYahooFetcher("")
	tests := map[string]string{"2800": "2800.HK", "5": "0005.HK", "00700": "0700.HK", "HSI": "^HSI", "AAPL": "AAPL"}
	for in, want := range tests {
		if got := f.yahooSymbol(in); got != want {
			t.Errorf("yahooSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
