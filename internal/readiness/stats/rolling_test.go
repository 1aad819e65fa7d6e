package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTrailingMean(t *testing.T) {
	xs := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		name string
		i, w int
		want float64
	}{
		{"full window", 4, 3, 40},
		{"partial window at start", 1, 3, 15},
		{"single point", 0, 7, 10},
		{"window wider than slice", 4, 100, 30},
		{"window of one", 3, 1, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrailingMean(xs, tt.i, tt.w)
			if !almostEqual(got, tt.want) {
				t.Errorf("TrailingMean(i=%d, w=%d) = %v, want %v", tt.i, tt.w, got, tt.want)
			}
		})
	}
}

func TestTrailingMeanEmpty(t *testing.T) {
	if got := TrailingMean(nil, 0, 7); got != 0 {
		t.Errorf("TrailingMean(nil) = %v, want 0", got)
	}
}

func TestTrailingSampleStd(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	// Sample std of the full series is 2.138089935299395.
	got, ok := TrailingSampleStd(xs, 7, 8)
	if !ok {
		t.Fatal("expected defined std for 8-point window")
	}
	if math.Abs(got-2.138089935299395) > 1e-12 {
		t.Errorf("TrailingSampleStd = %v, want ~2.1381", got)
	}
}

func TestTrailingSampleStdUndefined(t *testing.T) {
	xs := []float64{42}

	if _, ok := TrailingSampleStd(xs, 0, 30); ok {
		t.Error("single-point window must report std as undefined, not zero")
	}
	if _, ok := TrailingSampleStd(nil, 0, 30); ok {
		t.Error("empty series must report std as undefined")
	}
}

func TestTrailingSampleStdTwoPoints(t *testing.T) {
	xs := []float64{10, 14}

	got, ok := TrailingSampleStd(xs, 1, 30)
	if !ok {
		t.Fatal("two points should define a sample std")
	}
	// Sample std of {10, 14} with n-1 denominator.
	want := math.Sqrt(8)
	if !almostEqual(got, want) {
		t.Errorf("TrailingSampleStd = %v, want %v", got, want)
	}
}

func TestTrailingSampleStdConstantSeries(t *testing.T) {
	xs := []float64{50, 50, 50, 50}

	got, ok := TrailingSampleStd(xs, 3, 30)
	if !ok {
		t.Fatal("constant series still defines a std")
	}
	if got != 0 {
		t.Errorf("constant series std = %v, want 0", got)
	}
}

func TestZScore(t *testing.T) {
	tests := []struct {
		name              string
		value, mean, std  float64
		want              float64
	}{
		{"two sigma above", 54, 50, 2, 2},
		{"below mean", 46, 50, 2, -2},
		{"zero std guards", 54, 50, 0, 0},
		{"negative std guards", 54, 50, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZScore(tt.value, tt.mean, tt.std); !almostEqual(got, tt.want) {
				t.Errorf("ZScore(%v, %v, %v) = %v, want %v", tt.value, tt.mean, tt.std, got, tt.want)
			}
		})
	}
}
