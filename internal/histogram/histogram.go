// Package histogram builds frequency histograms over integer-valued sample
// streams (flux intervals, byte values) and derives summary statistics,
// local-maximum peaks and bit-cell timing classifications from them.
package histogram

import (
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultBins is used when New is asked for zero bins.
	DefaultBins = 256
	// MaxBins caps the bin count a histogram will allocate.
	MaxBins = 65536
)

// Histogram is a mutable frequency histogram. Bin index equals sample value
// (minus Offset, divided by the bin width), so flux tick values map straight
// onto bins. Stats and peaks are computed lazily and cached until the next
// mutation.
type Histogram struct {
	bins     []uint32
	binWidth float64
	offset   uint32
	total    uint64

	stats *Stats
}

// Stats is a read-only snapshot of a histogram: occupied range, the tallest
// bin, and weighted moments over bin positions.
type Stats struct {
	Total    uint64
	MinBin   int // lowest occupied bin, -1 when empty
	MaxBin   int // highest occupied bin, -1 when empty
	PeakBin  int // tallest bin, -1 when empty
	PeakVal  uint32
	Mean     float64
	StdDev   float64
	Median   int // bin where the cumulative count first reaches half the total
}

// New allocates a histogram with binCount zeroed bins. Zero selects
// DefaultBins; counts beyond MaxBins are clamped. Bin width defaults to 1
// and offset to 0.
func New(binCount int) *Histogram {
	if binCount <= 0 {
		binCount = DefaultBins
	}
	if binCount > MaxBins {
		binCount = MaxBins
	}
	return &Histogram{
		bins:     make([]uint32, binCount),
		binWidth: 1,
	}
}

// NewWithScale allocates a histogram whose bins represent ranges of
// binWidth sample units starting at offset. binWidth below 1 is treated
// as 1.
func NewWithScale(binCount int, binWidth float64, offset uint32) *Histogram {
	h := New(binCount)
	if binWidth >= 1 {
		h.binWidth = binWidth
	}
	h.offset = offset
	return h
}

// BinWidth reports the sample-unit width of one bin.
func (h *Histogram) BinWidth() float64 { return h.binWidth }

// Offset reports the sample value of the first bin's lower edge.
func (h *Histogram) Offset() uint32 { return h.offset }

// Bins reports the number of bins.
func (h *Histogram) Bins() int { return len(h.bins) }

// Total reports the number of samples accepted so far.
func (h *Histogram) Total() uint64 { return h.total }

// Get returns the count in bin i, or 0 when i is out of range.
func (h *Histogram) Get(i int) uint32 {
	if i < 0 || i >= len(h.bins) {
		return 0
	}
	return h.bins[i]
}

func (h *Histogram) binFor(v uint32) (int, bool) {
	if v < h.offset {
		return 0, false
	}
	idx := int(float64(v-h.offset) / h.binWidth)
	if idx >= len(h.bins) {
		return 0, false
	}
	return idx, true
}

// Add records one sample. Values that fall outside the bin range are
// silently ignored; this clamp policy is intentional, not an error.
func (h *Histogram) Add(v uint32) {
	idx, ok := h.binFor(v)
	if !ok {
		return
	}
	h.bins[idx]++
	h.total++
	h.invalidate()
}

// AddBatch records a batch of samples, applying the same clamp policy as
// Add per element.
func (h *Histogram) AddBatch(vs []uint32) {
	for _, v := range vs {
		idx, ok := h.binFor(v)
		if !ok {
			continue
		}
		h.bins[idx]++
		h.total++
	}
	h.invalidate()
}

// Clear zeros every bin and drops cached stats and peaks.
func (h *Histogram) Clear() {
	for i := range h.bins {
		h.bins[i] = 0
	}
	h.total = 0
	h.invalidate()
}

func (h *Histogram) invalidate() {
	h.stats = nil
}

// ComputeStats derives the statistics snapshot for the current bins. The
// result is cached; repeated calls without mutation return the identical
// snapshot. An empty histogram yields Total 0 with range indices at -1 and
// no divisions performed.
func (h *Histogram) ComputeStats() Stats {
	if h.stats != nil {
		return *h.stats
	}

	s := Stats{Total: h.total, MinBin: -1, MaxBin: -1, PeakBin: -1}
	if h.total == 0 {
		h.stats = &s
		return s
	}

	// One pass for range, peak and the cumulative median; occupied bins are
	// collected as weighted positions for the moment math.
	half := (h.total + 1) / 2
	var cum uint64
	medianFound := false
	xs := make([]float64, 0, 64)
	ws := make([]float64, 0, 64)

	for i, c := range h.bins {
		if c == 0 {
			continue
		}
		if s.MinBin < 0 {
			s.MinBin = i
		}
		s.MaxBin = i
		if c > s.PeakVal {
			s.PeakVal = c
			s.PeakBin = i
		}
		if !medianFound {
			cum += uint64(c)
			if cum >= half {
				s.Median = i
				medianFound = true
			}
		}
		xs = append(xs, float64(i))
		ws = append(ws, float64(c))
	}

	s.Mean = stat.Mean(xs, ws)
	if len(xs) > 1 {
		s.StdDev = stat.StdDev(xs, ws)
	}
	h.stats = &s
	return s
}

// Smooth replaces the bins with an odd-width moving average computed from an
// independent copy, so the window never reads values it has already
// rewritten. Even widths are widened by one; widths below 3 are a no-op.
// Cached stats and peaks are invalidated.
func (h *Histogram) Smooth(window int) {
	if window < 3 {
		return
	}
	if window%2 == 0 {
		window++
	}
	halfW := window / 2

	src := make([]uint32, len(h.bins))
	copy(src, h.bins)

	var total uint64
	for i := range h.bins {
		var sum uint64
		n := 0
		for j := i - halfW; j <= i+halfW; j++ {
			if j < 0 || j >= len(src) {
				continue
			}
			sum += uint64(src[j])
			n++
		}
		h.bins[i] = uint32(sum / uint64(n))
		total += uint64(h.bins[i])
	}
	h.total = total
	h.invalidate()
}
