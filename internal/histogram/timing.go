package histogram

// Encoding identifies the modulation family inferred from histogram peaks.
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingFM
	EncodingMFM
)

func (e Encoding) String() string {
	switch e {
	case EncodingFM:
		return "FM"
	case EncodingMFM:
		return "MFM"
	default:
		return "unknown"
	}
}

// Ratio windows for peak-spacing checks. Real captures jitter, so the
// canonical 1:1.5:2 (MFM) and 1:2 (FM) spacings are matched inside
// tolerance bands rather than exactly.
const (
	mfmMidRatioLo = 1.4
	mfmMidRatioHi = 1.6
	doubleRatioLo = 1.9
	doubleRatioHi = 2.1
)

// CellTiming is the result of a successful bit-cell classification: the
// modulation family and the nominal 1T cell time in sample units
// (peak center scaled by the bin width).
type CellTiming struct {
	Encoding Encoding
	CellTime float64
}

// DetectMFMTiming searches consecutive peak triples for the MFM 1T:1.5T:2T
// spacing. The first triple whose ratios fall inside the tolerance bands
// wins; its shortest peak sets the nominal cell time. Returns false when no
// triple matches or fewer than three peaks exist.
func (h *Histogram) DetectMFMTiming() (CellTiming, bool) {
	peaks := h.FindPeaks(0, 0)
	if len(peaks) < 3 {
		return CellTiming{}, false
	}

	for i := 0; i+2 < len(peaks); i++ {
		p1 := peaks[i].Center
		p2 := peaks[i+1].Center
		p3 := peaks[i+2].Center
		if p1 <= 0 {
			continue
		}
		r2 := p2 / p1
		r3 := p3 / p1
		if r2 >= mfmMidRatioLo && r2 <= mfmMidRatioHi &&
			r3 >= doubleRatioLo && r3 <= doubleRatioHi {
			return CellTiming{
				Encoding: EncodingMFM,
				CellTime: p1 * h.binWidth,
			}, true
		}
	}
	return CellTiming{}, false
}

// DetectFMTiming searches consecutive peak pairs for the FM 1T:2T spacing.
// Returns false when no pair matches or fewer than two peaks exist.
func (h *Histogram) DetectFMTiming() (CellTiming, bool) {
	peaks := h.FindPeaks(0, 0)
	if len(peaks) < 2 {
		return CellTiming{}, false
	}

	for i := 0; i+1 < len(peaks); i++ {
		p1 := peaks[i].Center
		p2 := peaks[i+1].Center
		if p1 <= 0 {
			continue
		}
		r := p2 / p1
		if r >= doubleRatioLo && r <= doubleRatioHi {
			return CellTiming{
				Encoding: EncodingFM,
				CellTime: p1 * h.binWidth,
			}, true
		}
	}
	return CellTiming{}, false
}

// DetectTiming tries MFM first, then FM.
func (h *Histogram) DetectTiming() (CellTiming, bool) {
	if ct, ok := h.DetectMFMTiming(); ok {
		return ct, true
	}
	return h.DetectFMTiming()
}

// DensityLabel names the density class for a cell time given in
// nanoseconds, following the standard peak positions (MFM DD shortest
// interval near 4µs, HD near 2µs, ED near 1µs; FM SD near 4µs).
func (ct CellTiming) DensityLabel(cellTimeNS float64) string {
	switch ct.Encoding {
	case EncodingMFM:
		switch {
		case cellTimeNS >= 3300 && cellTimeNS <= 4700:
			return "MFM DD"
		case cellTimeNS >= 1500 && cellTimeNS < 2500:
			return "MFM HD"
		case cellTimeNS >= 750 && cellTimeNS < 1250:
			return "MFM ED"
		}
	case EncodingFM:
		if cellTimeNS >= 3500 && cellTimeNS <= 4500 {
			return "FM SD"
		}
	}
	return "unknown"
}
