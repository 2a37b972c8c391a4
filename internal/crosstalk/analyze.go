package crosstalk

import "math/bits"

const (
	// Bit-level similarity of 50% is what two unrelated byte streams show
	// by chance; EstimateLevel re-centers the scale there.
	baselineSimilarity = 0.5

	// filterFactor is the deliberately partial subtraction weight. Full
	// subtraction over-corrects whenever the level estimate is high because
	// the tracks share format structure rather than leakage.
	filterFactor = 0.5
)

// EstimateLevel computes the interference level of window against ref as
// bit-wise Hamming similarity over the overlapping bytes, re-centered so
// chance similarity maps to 0 and identity maps to 1, clamped to [0,1].
// Empty input yields 0.
func EstimateLevel(window, ref []byte) float64 {
	n := len(window)
	if len(ref) < n {
		n = len(ref)
	}
	if n == 0 {
		return 0
	}

	matched := 0
	for i := 0; i < n; i++ {
		matched += 8 - bits.OnesCount8(window[i]^ref[i])
	}
	similarity := float64(matched) / float64(8*n)

	level := (similarity - baselineSimilarity) / (1 - baselineSimilarity)
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// Detect scans data in WindowSize windows and reports how much of it
// resembles the neighbor references. Disabled mode or absent references
// yield a zeroed report, not an error. The buffer is never modified.
func (s *State) Detect(data []byte) Result {
	return s.analyze(data, false, s.cfg.Threshold)
}

// Filter runs Detect and then subtracts the dominant reference, scaled by
// level*filterFactor, from every window above threshold, clamping each byte
// at zero. Result.Filtered counts the rewritten windows.
func (s *State) Filter(data []byte) Result {
	return s.analyze(data, true, s.cfg.Threshold)
}

// Process dispatches on the configured mode and fills in the before/after
// quality heuristic. ModeOff returns a zeroed report with quality 100.
func (s *State) Process(data []byte) Result {
	var res Result
	switch s.cfg.Mode {
	case ModeDetect:
		res = s.Detect(data)
	case ModeFilter:
		res = s.Filter(data)
	case ModeAggressive:
		res = s.analyze(data, true, s.cfg.Threshold/2)
	default:
		res.QualityBefore = 100
		res.QualityAfter = 100
		return res
	}

	res.QualityBefore = 100 - res.Percentage
	res.QualityAfter = res.QualityBefore
	if res.Filtered > 0 {
		// Filtering recovers part of the affected fraction.
		res.QualityAfter += res.Percentage * filterFactor
		if res.QualityAfter > 100 {
			res.QualityAfter = 100
		}
	}
	return res
}

func (s *State) analyze(data []byte, filter bool, threshold float64) Result {
	var res Result
	lower, upper := s.activeRefs()
	if s.cfg.Mode == ModeOff || len(data) == 0 || (lower == nil && upper == nil) {
		return res
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	res.Source = s.dominantSource(data, lower, upper)
	filterRef := upper
	if res.Source == SideLower {
		filterRef = lower
	}

	type window struct {
		start, end int
		level      float64
	}
	var levelSum float64
	windows := make([]window, 0, (len(data)+WindowSize-1)/WindowSize)

	for start := 0; start < len(data); start += WindowSize {
		end := start + WindowSize
		if end > len(data) {
			end = len(data)
		}
		w := data[start:end]

		var level float64
		if lower != nil && start < len(lower) {
			level = EstimateLevel(w, lower[start:])
		}
		if upper != nil && start < len(upper) {
			if l := EstimateLevel(w, upper[start:]); l > level {
				level = l
			}
		}

		windows = append(windows, window{start, end, level})
		levelSum += level
		res.Analyzed++
		if level > res.MaxLevel {
			res.MaxLevel = level
		}
	}
	if res.Analyzed == 0 {
		return res
	}

	if s.cfg.Adaptive {
		if mean := levelSum / float64(res.Analyzed); mean > threshold {
			threshold = mean
		}
	}

	var detectedSum float64
	for _, w := range windows {
		if w.level <= threshold {
			continue
		}
		res.Detected++
		detectedSum += w.level

		if filter && filterRef != nil && w.start < len(filterRef) {
			subtractWindow(data[w.start:w.end], filterRef[w.start:], w.level)
			res.Filtered++
		}
	}

	if res.Detected > 0 {
		res.AvgLevel = detectedSum / float64(res.Detected)
	}
	res.Percentage = float64(res.Detected) / float64(res.Analyzed) * 100

	s.totalAnalyzed += uint64(res.Analyzed)
	s.totalDetected += uint64(res.Detected)
	s.totalFiltered += uint64(res.Filtered)
	return res
}

// subtractWindow removes level*filterFactor of ref from w in place,
// clamping each byte at zero.
func subtractWindow(w, ref []byte, level float64) {
	n := len(w)
	if len(ref) < n {
		n = len(ref)
	}
	scale := level * filterFactor
	for i := 0; i < n; i++ {
		v := float64(w[i]) - float64(ref[i])*scale
		if v < 0 {
			v = 0
		}
		w[i] = byte(v)
	}
}

// dominantSource picks which neighbor the interference comes from: the only
// side with a reference, or with both present the side whose zero-offset
// correlation with the live data is higher. Ties and absent references
// resolve to 0.
func (s *State) dominantSource(data, lower, upper []byte) Side {
	switch {
	case lower == nil && upper == nil:
		return 0
	case upper == nil:
		return SideLower
	case lower == nil:
		return SideUpper
	}
	cl := Correlate(data, lower, 0)
	cu := Correlate(data, upper, 0)
	switch {
	case cl > cu:
		return SideLower
	case cu > cl:
		return SideUpper
	default:
		return 0
	}
}
