package histogram

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew_Defaults(t *testing.T) {
	h := New(0)
	if h.Bins() != DefaultBins {
		t.Errorf("Bins = %d, want %d", h.Bins(), DefaultBins)
	}
	if h.BinWidth() != 1 {
		t.Errorf("BinWidth = %v, want 1", h.BinWidth())
	}

	h = New(1 << 20)
	if h.Bins() != MaxBins {
		t.Errorf("Bins = %d, want clamp to %d", h.Bins(), MaxBins)
	}
}

func TestAdd_InRangeAndClamp(t *testing.T) {
	h := New(16)

	h.Add(5)
	if h.Get(5) != 1 {
		t.Errorf("Get(5) = %d, want 1", h.Get(5))
	}
	for i := 0; i < 16; i++ {
		if i != 5 && h.Get(i) != 0 {
			t.Errorf("Get(%d) = %d, want 0", i, h.Get(i))
		}
	}

	// Out-of-range values are silently ignored.
	h.Add(16)
	h.Add(1000)
	if h.Total() != 1 {
		t.Errorf("Total = %d, want 1 after out-of-range adds", h.Total())
	}
}

func TestAddBatch(t *testing.T) {
	h := New(64)
	h.AddBatch([]uint32{1, 2, 2, 3, 3, 3, 200})
	if h.Total() != 6 {
		t.Errorf("Total = %d, want 6 (out-of-range dropped)", h.Total())
	}
	if h.Get(3) != 3 {
		t.Errorf("Get(3) = %d, want 3", h.Get(3))
	}
}

func TestComputeStats_Values(t *testing.T) {
	h := New(64)
	h.AddBatch([]uint32{10, 20, 30, 40, 50})

	s := h.ComputeStats()
	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	if s.MinBin != 10 || s.MaxBin != 50 {
		t.Errorf("range = [%d,%d], want [10,50]", s.MinBin, s.MaxBin)
	}
	if s.Mean != 30.0 {
		t.Errorf("Mean = %v, want 30.0", s.Mean)
	}
	if s.Median != 30 {
		t.Errorf("Median = %d, want 30", s.Median)
	}
}

func TestComputeStats_CacheIdentity(t *testing.T) {
	h := New(64)
	h.AddBatch([]uint32{3, 3, 7, 9})

	a := h.ComputeStats()
	b := h.ComputeStats()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated ComputeStats differ (-first +second):\n%s", diff)
	}

	// Mutation invalidates the cache.
	h.Add(9)
	c := h.ComputeStats()
	if c.Total != a.Total+1 {
		t.Errorf("Total after Add = %d, want %d", c.Total, a.Total+1)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	h := New(32)
	s := h.ComputeStats()
	if s.Total != 0 || s.MinBin != -1 || s.MaxBin != -1 || s.PeakBin != -1 {
		t.Errorf("empty stats = %+v", s)
	}

	h.Add(4)
	h.Clear()
	s = h.ComputeStats()
	if s.Total != 0 {
		t.Errorf("Total after Clear = %d, want 0", s.Total)
	}
}

// addBump writes a symmetric triangular bump centered on c.
func addBump(h *Histogram, c int, height uint32, slope uint32, halfWidth int) {
	for d := -halfWidth; d <= halfWidth; d++ {
		v := height - slope*uint32(abs(d))
		for k := uint32(0); k < v; k++ {
			h.Add(uint32(c + d))
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestFindPeaks_ThreeBumps(t *testing.T) {
	h := New(256)
	addBump(h, 50, 100, 20, 4)
	addBump(h, 100, 80, 20, 3)
	addBump(h, 150, 60, 15, 3)

	peaks := h.FindPeaks(0, 0)
	if len(peaks) != 3 {
		t.Fatalf("got %d peaks, want 3: %+v", len(peaks), peaks)
	}
	wantPos := []int{50, 100, 150}
	for i, p := range peaks {
		if p.Position != wantPos[i] {
			t.Errorf("peak %d at %d, want %d", i, p.Position, wantPos[i])
		}
		if i > 0 && peaks[i-1].Position >= p.Position {
			t.Errorf("peaks not in ascending order: %+v", peaks)
		}
		if p.Width < 1 {
			t.Errorf("peak %d width = %d, want >= 1", i, p.Width)
		}
		if math.Abs(p.Center-float64(wantPos[i])) > 0.5 {
			t.Errorf("peak %d center = %v, want ~%d", i, p.Center, wantPos[i])
		}
	}
}

func TestFindPeaks_MinDistanceKeepsTaller(t *testing.T) {
	h := New(64)
	// Two strict local maxima two bins apart: only the taller survives a
	// min-distance of 5.
	h.AddBatch(repeat(10, 20))
	h.AddBatch(repeat(11, 5))
	h.AddBatch(repeat(12, 30))

	peaks := h.FindPeaks(2, 5)
	if len(peaks) != 1 {
		t.Fatalf("got %d peaks, want 1: %+v", len(peaks), peaks)
	}
	if peaks[0].Position != 12 || peaks[0].Count != 30 {
		t.Errorf("kept peak %+v, want the taller one at 12", peaks[0])
	}
}

func repeat(v uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestFindPeaks_EmptyHistogram(t *testing.T) {
	h := New(32)
	if peaks := h.FindPeaks(0, 0); peaks != nil {
		t.Errorf("got %v, want nil", peaks)
	}
}

func TestSmooth_InvalidatesAndAverages(t *testing.T) {
	h := New(16)
	h.AddBatch(repeat(8, 9)) // single spike of 9 at bin 8
	before := h.ComputeStats()
	if before.PeakVal != 9 {
		t.Fatalf("PeakVal = %d, want 9", before.PeakVal)
	}

	h.Smooth(3)
	after := h.ComputeStats()
	if after.PeakVal != 3 {
		t.Errorf("PeakVal after smooth = %d, want 3", after.PeakVal)
	}
	if h.Get(7) != 3 || h.Get(9) != 3 {
		t.Errorf("neighbors = %d,%d, want 3,3", h.Get(7), h.Get(9))
	}

	// Width below 3 is a no-op.
	h.Clear()
	h.Add(4)
	h.Smooth(1)
	if h.Get(4) != 1 {
		t.Errorf("Smooth(1) changed bins")
	}
}

func TestNewWithScale_BinMapping(t *testing.T) {
	h := NewWithScale(16, 16, 0)
	h.Add(100) // 100/16 = bin 6
	if h.Get(6) != 1 {
		t.Errorf("Get(6) = %d, want 1", h.Get(6))
	}

	h = NewWithScale(16, 1, 100)
	h.Add(105)
	if h.Get(5) != 1 {
		t.Errorf("offset mapping: Get(5) = %d, want 1", h.Get(5))
	}
	h.Add(50) // below offset: ignored
	if h.Total() != 1 {
		t.Errorf("Total = %d, want 1", h.Total())
	}
}
