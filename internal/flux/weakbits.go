package flux

import "gonum.org/v1/gonum/stat"

const (
	// DefaultWeakThreshold is the relative dispersion (stddev/mean) above
	// which a sample position counts as weak. An empirical constant from
	// field captures; override through WeakBitConfig when a format needs a
	// different sensitivity.
	DefaultWeakThreshold = 0.2

	// WeakBitCapacity bounds the positions one detection pass records.
	WeakBitCapacity = 256
)

// WeakBitSet is the bounded result of a detection pass: flagged sample
// positions in ascending order. Truncated reports that the capacity was
// reached and later positions went unexamined; that is a property of the
// result, not a failure.
type WeakBitSet struct {
	Positions []int
	Truncated bool
}

// WeakBitConfig tunes weak-bit detection.
type WeakBitConfig struct {
	Threshold float64
	Capacity  int
}

// DefaultWeakBitConfig returns the standard threshold and capacity.
func DefaultWeakBitConfig() WeakBitConfig {
	return WeakBitConfig{Threshold: DefaultWeakThreshold, Capacity: WeakBitCapacity}
}

// DetectWeakBits flags sample positions whose value disperses across the
// aligned revolutions. For each position up to the shortest revolution it
// gathers the value from every revolution at position+offset, skipping
// revolutions the offset pushes out of range, and flags the position when
// the population stddev exceeds Threshold times the mean. Fewer than two
// revolutions, or fewer than two in-range values at a position, yield
// nothing to compare and the position passes. Detection stops at capacity.
func (cfg WeakBitConfig) DetectWeakBits(tc *TrackCapture, a Alignment) WeakBitSet {
	var set WeakBitSet
	if tc == nil || len(tc.Revolutions) < 2 || len(a.Offsets) != len(tc.Revolutions) {
		return set
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultWeakThreshold
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = WeakBitCapacity
	}

	shortest := tc.ShortestRevolution()
	vals := make([]float64, 0, len(tc.Revolutions))
	for i := 0; i < shortest; i++ {
		vals = vals[:0]
		for r, rev := range tc.Revolutions {
			idx := i + a.Offsets[r]
			if idx < 0 || idx >= len(rev.Intervals) {
				continue
			}
			vals = append(vals, float64(rev.Intervals[idx]))
		}
		if len(vals) < 2 {
			continue
		}

		mean := stat.Mean(vals, nil)
		if mean <= 0 {
			continue
		}
		if stat.PopStdDev(vals, nil)/mean > threshold {
			set.Positions = append(set.Positions, i)
			if len(set.Positions) >= capacity {
				set.Truncated = i < shortest-1
				break
			}
		}
	}
	return set
}

// DetectWeakBits runs the default configuration.
func DetectWeakBits(tc *TrackCapture, a Alignment) WeakBitSet {
	return DefaultWeakBitConfig().DetectWeakBits(tc, a)
}
