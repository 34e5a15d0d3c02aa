package calculator

import (
	"errors"
	"math"

	"SignalScreener/internal/model"
)

// Highest returns the maximum of values, or -Inf for an empty slice.
func Highest(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

// Lowest returns the minimum of values, or +Inf for an empty slice.
func Lowest(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}

// ArgMax returns the index of the first occurrence of the maximum, or -1.
func ArgMax(values []float64) int {
	idx := -1
	for i, v := range values {
		if idx < 0 || v > values[idx] {
			idx = i
		}
	}
	return idx
}

// ArgMin returns the index of the first occurrence of the minimum, or -1.
func ArgMin(values []float64) int {
	idx := -1
	for i, v := range values {
		if idx < 0 || v < values[idx] {
			idx = i
		}
	}
	return idx
}

// Tail returns the last n values (all of them when n exceeds the length).
func Tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

// Window returns values[end-n+1 : end+1], clipped at index 0.
func Window(values []float64, end, n int) []float64 {
	start := end - n + 1
	if start < 0 {
		start = 0
	}
	return values[start : end+1]
}

// CalculateRange scans the most recent n bars and returns the high and low.
func CalculateRange(bars []model.OHLCV, n int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars[start:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// CalculateRangePosition returns where current sits within [low, high] (0.0~1.0).
func CalculateRangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// FibLevel returns the retracement level at ratio between bottom and top.
func FibLevel(top, bottom, ratio float64) float64 {
	return bottom + ratio*(top-bottom)
}

// StreakBelow counts consecutive values below level, walking back from the end.
func StreakBelow(values []float64, level float64) int {
	n := 0
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] >= level {
			break
		}
		n++
	}
	return n
}
