package calculator

import "SignalScreener/internal/model"

// AlignedClose pairs a subject close with the benchmark close of the same day.
type AlignedClose struct {
	Date      string
	Subject   float64
	Benchmark float64
}

// AlignCloses joins two series on exact calendar date, in subject order.
func AlignCloses(subject, benchmark model.Series) []AlignedClose {
	bench := make(map[string]float64, benchmark.Len())
	for _, b := range benchmark.Bars {
		bench[b.DateKey()] = b.Close
	}
	out := make([]AlignedClose, 0, subject.Len())
	for _, b := range subject.Bars {
		key := b.DateKey()
		if c, ok := bench[key]; ok {
			out = append(out, AlignedClose{Date: key, Subject: b.Close, Benchmark: c})
		}
	}
	return out
}

// Return is the simple return from start to end.
func Return(start, end float64) float64 {
	return (end - start) / start
}

// Underperforms reports whether the subject's return over period trails the
// benchmark's, measured at the end of the aligned slice.
func Underperforms(aligned []AlignedClose, period int) bool {
	last := len(aligned) - 1
	from := aligned[last-period]
	to := aligned[last]
	return Return(from.Subject, to.Subject) < Return(from.Benchmark, to.Benchmark)
}
