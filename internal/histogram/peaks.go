package histogram

const (
	// MaxPeaks bounds how many peaks FindPeaks returns; further candidates
	// are silently dropped, not reported as an error.
	MaxPeaks = 16

	autoHeightDivisor   = 10
	autoHeightFloor     = 2
	autoDistanceDivisor = 20
	autoDistanceFloor   = 3
)

// Peak is one local maximum of a histogram snapshot. It becomes stale as
// soon as the histogram mutates.
type Peak struct {
	Position int     // bin index of the maximum
	Count    uint32  // height at the maximum
	Width    int     // full width at half maximum, in bins
	Center   float64 // sub-bin weighted centroid over the FWHM window
}

// FindPeaks scans for strict local maxima above minHeight, at least
// minDistance bins apart. A zero threshold is derived automatically:
// minHeight from a tenth of the tallest bin (floor 2), minDistance from a
// twentieth of the occupied range (floor 3). When two candidates crowd
// inside minDistance only the taller survives; on equal heights the
// first-found one is retained. At most MaxPeaks peaks are returned, in
// ascending bin order.
func (h *Histogram) FindPeaks(minHeight uint32, minDistance int) []Peak {
	s := h.ComputeStats()
	if s.Total == 0 || s.MaxBin < 0 {
		return nil
	}

	if minHeight == 0 {
		minHeight = s.PeakVal / autoHeightDivisor
		if minHeight < autoHeightFloor {
			minHeight = autoHeightFloor
		}
	}
	if minDistance == 0 {
		minDistance = (s.MaxBin - s.MinBin) / autoDistanceDivisor
		if minDistance < autoDistanceFloor {
			minDistance = autoDistanceFloor
		}
	}

	var peaks []Peak
	for i := 1; i < len(h.bins)-1; i++ {
		curr := h.bins[i]
		if curr < minHeight || curr <= h.bins[i-1] || curr < h.bins[i+1] {
			continue
		}

		p := h.measurePeak(i)

		if n := len(peaks); n > 0 && p.Position-peaks[n-1].Position < minDistance {
			// Crowded: keep the taller candidate only.
			if p.Count > peaks[n-1].Count {
				peaks[n-1] = p
			}
			continue
		}
		peaks = append(peaks, p)
		if len(peaks) >= MaxPeaks {
			break
		}
	}
	return peaks
}

// measurePeak computes FWHM and the weighted centroid around bin i by
// walking outward while the bins stay above half the peak height.
func (h *Histogram) measurePeak(i int) Peak {
	height := h.bins[i]
	half := height / 2

	left, right := i, i
	for left > 0 && h.bins[left-1] > half {
		left--
	}
	for right < len(h.bins)-1 && h.bins[right+1] > half {
		right++
	}

	var weighted, weight float64
	for j := left; j <= right; j++ {
		weighted += float64(j) * float64(h.bins[j])
		weight += float64(h.bins[j])
	}
	center := float64(i)
	if weight > 0 {
		center = weighted / weight
	}

	return Peak{
		Position: i,
		Count:    height,
		Width:    right - left + 1,
		Center:   center,
	}
}
