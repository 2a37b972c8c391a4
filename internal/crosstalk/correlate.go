package crosstalk

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Correlate computes the Pearson correlation of a against b shifted by
// offset, over the overlapping region. Degenerate input (constant series,
// fewer than two overlapping samples) yields 0 rather than a division by
// zero or NaN.
func Correlate(a, b []byte, offset int) float64 {
	start := 0
	if offset < 0 {
		start = -offset
	}

	xs := make([]float64, 0, len(a))
	ys := make([]float64, 0, len(a))
	for i := start; i < len(a); i++ {
		j := i + offset
		if j >= len(b) {
			break
		}
		xs = append(xs, float64(a[i]))
		ys = append(ys, float64(b[j]))
	}
	if len(xs) < 2 {
		return 0
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// FindOffset sweeps offsets in [-maxOffset, maxOffset] and returns the one
// where Correlate peaks, plus the peak value. Empty input returns (0, 0).
func FindOffset(a, b []byte, maxOffset int) (int, float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}

	bestOffset := 0
	bestCorr := math.Inf(-1)
	for offset := -maxOffset; offset <= maxOffset; offset++ {
		if c := Correlate(a, b, offset); c > bestCorr {
			bestCorr = c
			bestOffset = offset
		}
	}
	if math.IsInf(bestCorr, -1) {
		return 0, 0
	}
	return bestOffset, bestCorr
}
