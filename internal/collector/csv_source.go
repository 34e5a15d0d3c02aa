package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"SignalScreener/internal/model"
)

// CSVSource reads <Dir>/<symbol>.csv files with a
// date,open,high,low,close[,volume] header.
type CSVSource struct {
	Dir string
}

func (s *CSVSource) Name() string { return "csv" }

// FetchDailyBars returns the last limit rows dated on or before tradeDate.
// Unparsable numbers become NaN and are dropped by the normalizer.
func (s *CSVSource) FetchDailyBars(_ context.Context, symbol string, tradeDate time.Time, limit int) ([]model.RawBar, error) {
	f, err := os.Open(filepath.Join(s.Dir, symbol+".csv"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("csv %s: %w", symbol, ErrNoData)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv %s header: %w", symbol, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, need := range []string{"date", "close"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("csv %s: missing %q column", symbol, need)
		}
	}

	lastKey := tradeDate.Format(model.DateLayout)
	var out []model.RawBar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv %s: %w", symbol, err)
		}
		field := func(name string) string {
			if i, ok := col[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		date := field("date")
		if date > lastKey {
			continue
		}
		c := parseNum(field("close"))
		out = append(out, model.RawBar{
			Symbol: symbol,
			Date:   date,
			Open:   orClose(parseNum(field("open")), c),
			High:   orClose(parseNum(field("high")), c),
			Low:    orClose(parseNum(field("low")), c),
			Close:  c,
			Volume: parseNum(field("volume")),
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func parseNum(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
