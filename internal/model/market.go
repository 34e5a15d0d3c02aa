package model

import "time"

// DateLayout is the calendar-day format used for trade dates everywhere.
const DateLayout = "2006-01-02"

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// DateKey returns the bar's calendar date as YYYY-MM-DD.
func (b OHLCV) DateKey() string { return b.Time.Format(DateLayout) }

// RawBar is an unvalidated per-symbol row as handed over by a data source.
type RawBar struct {
	Symbol string
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series holds the normalized daily bars of one symbol, ascending by date.
type Series struct {
	Symbol string
	Bars   []OHLCV
}

func (s Series) Len() int { return len(s.Bars) }

// Last returns the most recent bar. It panics on an empty series.
func (s Series) Last() OHLCV { return s.Bars[len(s.Bars)-1] }

func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

func (s Series) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

func (s Series) Opens() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Open
	}
	return out
}

// DateKeys returns the YYYY-MM-DD date of every bar.
func (s Series) DateKeys() []string {
	out := make([]string, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.DateKey()
	}
	return out
}

// IndexOf returns the index of the bar dated on the same calendar day as d, or -1.
func (s Series) IndexOf(d time.Time) int {
	key := d.Format(DateLayout)
	for i, b := range s.Bars {
		if b.DateKey() == key {
			return i
		}
	}
	return -1
}

// IndexOnOrAfter returns the bar dated d, else the first bar after d, else -1.
func (s Series) IndexOnOrAfter(d time.Time) int {
	if i := s.IndexOf(d); i >= 0 {
		return i
	}
	for i, b := range s.Bars {
		if b.Time.After(d) {
			return i
		}
	}
	return -1
}

// LastIndexOnOrBefore returns the index of the latest bar dated on or before d, or -1.
func (s Series) LastIndexOnOrBefore(d time.Time) int {
	idx := -1
	for i, b := range s.Bars {
		if !b.Time.After(d) {
			idx = i
		}
	}
	return idx
}

// Head returns a series holding the first n bars, sharing the backing array.
func (s Series) Head(n int) Series {
	if n > len(s.Bars) {
		n = len(s.Bars)
	}
	return Series{Symbol: s.Symbol, Bars: s.Bars[:n]}
}
