// Package stats provides the trailing-window statistics used by the
// readiness analyzer.
//
// Windows are positional: the window of size w at index i covers entries
// [max(0, i-w+1) .. i] regardless of calendar gaps between them. Short
// histories produce partial windows rather than undefined means.
package stats

import "math"

// windowStart returns the first index of the trailing window of size w
// ending at i.
func windowStart(i, w int) int {
	start := i - w + 1
	if start < 0 {
		start = 0
	}
	return start
}

// TrailingMean returns the mean of xs[max(0,i-w+1)..i].
// Returns 0 for an empty slice.
func TrailingMean(xs []float64, i, w int) float64 {
	if len(xs) == 0 || i < 0 || w <= 0 {
		return 0
	}
	if i >= len(xs) {
		i = len(xs) - 1
	}
	start := windowStart(i, w)
	sum := 0.0
	for _, x := range xs[start : i+1] {
		sum += x
	}
	return sum / float64(i-start+1)
}

// TrailingSampleStd returns the sample standard deviation (n-1 denominator)
// of xs[max(0,i-w+1)..i]. The second return is false when the window holds
// fewer than two points: the deviation is undefined there, not zero.
func TrailingSampleStd(xs []float64, i, w int) (float64, bool) {
	if len(xs) == 0 || i < 0 || w <= 0 {
		return 0, false
	}
	if i >= len(xs) {
		i = len(xs) - 1
	}
	start := windowStart(i, w)
	n := i - start + 1
	if n < 2 {
		return 0, false
	}

	mean := TrailingMean(xs, i, w)
	sumSq := 0.0
	for _, x := range xs[start : i+1] {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1)), true
}

// ZScore returns the standardized deviation of value from mean in units of
// stdDev. Returns 0 when stdDev is not positive.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev <= 0 {
		return 0
	}
	return (value - mean) / stdDev
}
