package flux

import "math"

// Reconcile merges the aligned revolutions into a single interval stream of
// the shortest revolution's length. Each output sample is the rounded mean
// of the in-range aligned values, which cancels independent read jitter
// while leaving genuinely unstable positions to the weak-bit report. A
// single-revolution capture reconciles to a copy of that revolution; an
// empty capture reconciles to nil.
func Reconcile(tc *TrackCapture, a Alignment) []uint32 {
	if tc == nil || len(tc.Revolutions) == 0 {
		return nil
	}
	shortest := tc.ShortestRevolution()
	if shortest == 0 {
		return nil
	}

	out := make([]uint32, shortest)
	if len(tc.Revolutions) < 2 || len(a.Offsets) != len(tc.Revolutions) {
		copy(out, tc.Revolutions[0].Intervals)
		return out
	}

	for i := 0; i < shortest; i++ {
		var sum uint64
		count := 0
		for r, rev := range tc.Revolutions {
			idx := i + a.Offsets[r]
			if idx < 0 || idx >= len(rev.Intervals) {
				continue
			}
			sum += uint64(rev.Intervals[idx])
			count++
		}
		if count == 0 {
			out[i] = tc.Revolutions[0].Intervals[i]
			continue
		}
		out[i] = uint32(math.Round(float64(sum) / float64(count)))
	}
	return out
}
