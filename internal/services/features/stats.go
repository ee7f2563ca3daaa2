package features

import "math"

// SampleStd returns the sample standard deviation of xs (n-1 denominator).
// ok is false when fewer than two values are given.
func SampleStd(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	sum := 0.0
	sum2 := 0.0
	for _, x := range xs {
		sum += x
		sum2 += x * x
	}
	n := float64(len(xs))
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), true
}

// Mean returns the arithmetic mean of xs, or false for an empty slice.
func Mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), true
}
