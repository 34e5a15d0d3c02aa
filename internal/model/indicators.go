package model

// TASnapshot holds the descriptive technical-analysis figures recorded per symbol.
type TASnapshot struct {
	High20  float64
	Low20   float64
	High50  float64
	Low50   float64
	High250 float64
	Low250  float64
	RSI14   *float64
	// Price relative to the benchmark keyed by horizon in days (5, 20, 60, 125, 250).
	// A missing key means the aligned history was too short.
	PR       map[int]float64
	UsedDays int
	From     string
	To       string
}
