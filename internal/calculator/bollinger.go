package calculator

import "math"

// Band is one Bollinger Bands observation.
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Width returns (upper-lower)/middle, or 0 when middle is 0.
func (b Band) Width() float64 {
	if b.Middle == 0 {
		return 0
	}
	return (b.Upper - b.Lower) / b.Middle
}

// Bollinger computes mean ± k population standard deviations over a trailing window.
func Bollinger(values []float64, period int, k float64) []Band {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]Band, 0, len(values)-period+1)
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean := Mean(window)
		variance := 0.0
		for _, x := range window {
			variance += (x - mean) * (x - mean)
		}
		std := math.Sqrt(variance / float64(period))
		out = append(out, Band{
			Upper:  mean + k*std,
			Middle: mean,
			Lower:  mean - k*std,
		})
	}
	return out
}
