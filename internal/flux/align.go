package flux

import "math"

const (
	// DefaultMaxOffset bounds the alignment search to +/-100 samples either
	// side of the reference revolution.
	DefaultMaxOffset = 100

	// Revolutions longer than this are sub-sampled during correlation so the
	// sweep stays bounded regardless of capture length.
	strideThreshold = 1000
	strideDivisor   = 100
)

// Alignment maps every revolution of a track capture to an integer sample
// offset relative to revolution 0 (which is always 0), plus a scalar quality
// in [0,1]. It is recomputed whenever the revolutions change, never stored.
type Alignment struct {
	Offsets []int
	Quality float64
}

// AlignerConfig tunes the alignment search.
type AlignerConfig struct {
	MaxOffset int
}

// DefaultAlignerConfig returns the standard search window.
func DefaultAlignerConfig() AlignerConfig {
	return AlignerConfig{MaxOffset: DefaultMaxOffset}
}

// Align computes per-revolution offsets against revolution 0. An empty
// capture yields a zero Alignment; a single revolution aligns trivially at
// offset 0 with quality 1.0. Quality is the
// mean of 1/(1+|offset|/10) over all revolutions, the reference contributing
// 1.0, so it decays smoothly as offsets grow and never raises an error.
func (cfg AlignerConfig) Align(tc *TrackCapture) Alignment {
	if tc == nil || len(tc.Revolutions) == 0 {
		return Alignment{}
	}

	a := Alignment{Offsets: make([]int, len(tc.Revolutions))}
	if len(tc.Revolutions) < 2 {
		a.Quality = 1.0
		return a
	}

	maxOffset := cfg.MaxOffset
	if maxOffset <= 0 {
		maxOffset = DefaultMaxOffset
	}

	ref := tc.Revolutions[0].Intervals
	total := 1.0
	for r := 1; r < len(tc.Revolutions); r++ {
		off, _ := CrossCorrelate(ref, tc.Revolutions[r].Intervals, maxOffset)
		a.Offsets[r] = off
		total += 1.0 / (1.0 + math.Abs(float64(off))/10.0)
	}
	a.Quality = total / float64(len(tc.Revolutions))
	return a
}

// Align runs the default configuration.
func Align(tc *TrackCapture) Alignment {
	return DefaultAlignerConfig().Align(tc)
}

// CrossCorrelate sweeps integer offsets in [-maxOffset, maxOffset] and
// returns the offset where rev best matches ref, along with the winning
// score. Long references are sub-sampled at a stride so cost stays bounded.
// The per-offset score is the mean of 1/(1+|delta|/100) over overlapping
// samples, a smooth bounded kernel that keeps partial overlaps comparable.
// Offsets with no overlap are skipped; empty input returns (0, 0).
func CrossCorrelate(ref, rev []uint32, maxOffset int) (int, float64) {
	if len(ref) == 0 || len(rev) == 0 {
		return 0, 0
	}

	stride := 1
	if len(ref) > strideThreshold {
		stride = len(ref) / strideDivisor
	}

	bestScore := -1.0
	bestOffset := 0
	for offset := -maxOffset; offset <= maxOffset; offset++ {
		var sum float64
		count := 0
		for i := 0; i < len(ref); i += stride {
			j := i + offset
			if j < 0 || j >= len(rev) {
				continue
			}
			diff := float64(int64(ref[i]) - int64(rev[j]))
			sum += 1.0 / (1.0 + math.Abs(diff)/100.0)
			count++
		}
		if count == 0 {
			continue
		}
		if score := sum / float64(count); score > bestScore {
			bestScore = score
			bestOffset = offset
		}
	}
	if bestScore < 0 {
		return 0, 0
	}
	return bestOffset, bestScore
}
