// Package series turns raw per-symbol rows into clean, date-ordered Series.
package series

import (
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"SignalScreener/internal/model"
)

// MinDate is the absolute lookback floor; no bar before it is ever used.
var MinDate = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseDate parses a YYYY-MM-DD trade date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, strings.TrimSpace(s))
}

// Normalize converts raw rows into a Series, preserving input order.
// Rows with a blank or unparsable date, or a non-finite price, are skipped
// with a warning. Rows dated before floor or before MinDate are dropped.
func Normalize(symbol string, rows []model.RawBar, floor time.Time) model.Series {
	bars := make([]model.OHLCV, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Date) == "" {
			continue
		}
		d, err := ParseDate(r.Date)
		if err != nil {
			log.Printf("[WARN] %s: invalid date format in record: %q: %v", symbol, r.Date, err)
			continue
		}
		if !finite(r.Open, r.High, r.Low, r.Close) {
			log.Printf("[WARN] %s: non-numeric price on %s, skipping bar", symbol, r.Date)
			continue
		}
		if d.Before(floor) || d.Before(MinDate) {
			continue
		}
		vol := r.Volume
		if math.IsNaN(vol) || math.IsInf(vol, 0) {
			vol = 0
		}
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: vol,
		})
	}
	return model.Series{Symbol: symbol, Bars: bars}
}

// Build sorts rows ascending by date, keeps one row for a repeated date,
// then normalizes. Input order therefore does not affect the result.
func Build(symbol string, rows []model.RawBar, floor time.Time) model.Series {
	return Normalize(symbol, SortDedupe(rows), floor)
}

// SortDedupe returns a date-sorted copy of rows with one row per date. For a
// repeated date the last usable row wins, so a later unusable duplicate
// cannot shadow good data; when none is usable the last row is kept.
// Rows whose date cannot be parsed are kept so Normalize can report them.
func SortDedupe(rows []model.RawBar) []model.RawBar {
	type keyed struct {
		row model.RawBar
		key string
		pos int
	}
	ks := make([]keyed, len(rows))
	for i, r := range rows {
		ks[i] = keyed{row: r, key: strings.TrimSpace(r.Date), pos: i}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].key < ks[j].key })

	out := make([]model.RawBar, 0, len(ks))
	for i := 0; i < len(ks); {
		j := i + 1
		if ks[i].key != "" {
			for j < len(ks) && ks[j].key == ks[i].key {
				j++
			}
		}
		pick := ks[j-1].row
		for k := j - 1; k >= i; k-- {
			if usable(ks[k].row) {
				pick = ks[k].row
				break
			}
		}
		out = append(out, pick)
		i = j
	}
	return out
}

func usable(r model.RawBar) bool {
	if _, err := ParseDate(r.Date); err != nil {
		return false
	}
	return finite(r.Open, r.High, r.Low, r.Close)
}

// Trim drops the bars dated before floor.
func Trim(s model.Series, floor time.Time) model.Series {
	for i, b := range s.Bars {
		if !b.Time.Before(floor) {
			return model.Series{Symbol: s.Symbol, Bars: s.Bars[i:]}
		}
	}
	return model.Series{Symbol: s.Symbol}
}

// SortByDate returns a copy of s ordered ascending by date.
func SortByDate(s model.Series) model.Series {
	bars := make([]model.OHLCV, len(s.Bars))
	copy(bars, s.Bars)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return model.Series{Symbol: s.Symbol, Bars: bars}
}

// LookbackFloor subtracts months calendar months from d, clamping the day to
// the end of the target month (2024-02-29 minus 24 months is 2022-02-28).
func LookbackFloor(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	total := int(m) - 1 - months
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	tm := time.Month(total + 1)
	if last := daysIn(y, tm); day > last {
		day = last
	}
	return time.Date(y, tm, day, 0, 0, 0, 0, d.Location())
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
