package histogram

import "testing"

// spike writes a narrow symmetric bump whose centroid lands exactly on c.
func spike(h *Histogram, c uint32) {
	for k := 0; k < 50; k++ {
		h.Add(c)
	}
	for k := 0; k < 20; k++ {
		h.Add(c - 1)
		h.Add(c + 1)
	}
}

func TestDetectMFMTiming_CanonicalSpacing(t *testing.T) {
	h := New(64)
	spike(h, 10)
	spike(h, 15)
	spike(h, 20)

	ct, ok := h.DetectMFMTiming()
	if !ok {
		t.Fatal("MFM timing not detected for 10/15/20 peaks")
	}
	if ct.Encoding != EncodingMFM {
		t.Errorf("Encoding = %v, want MFM", ct.Encoding)
	}
	if ct.CellTime != 10 {
		t.Errorf("CellTime = %v, want 10", ct.CellTime)
	}
}

func TestDetectMFMTiming_BadMiddlePeak(t *testing.T) {
	h := New(64)
	spike(h, 10)
	spike(h, 13) // ratio 1.3, outside the 1.5T window
	spike(h, 20)

	if ct, ok := h.DetectMFMTiming(); ok {
		t.Errorf("unexpected detection: %+v", ct)
	}
}

func TestDetectMFMTiming_TooFewPeaks(t *testing.T) {
	h := New(64)
	spike(h, 10)
	spike(h, 20)

	if _, ok := h.DetectMFMTiming(); ok {
		t.Error("detected MFM from two peaks")
	}
}

func TestDetectFMTiming(t *testing.T) {
	h := New(64)
	spike(h, 10)
	spike(h, 20)

	ct, ok := h.DetectFMTiming()
	if !ok {
		t.Fatal("FM timing not detected for 10/20 peaks")
	}
	if ct.Encoding != EncodingFM || ct.CellTime != 10 {
		t.Errorf("got %+v, want FM cell time 10", ct)
	}
}

func TestDetectTiming_PrefersMFM(t *testing.T) {
	h := New(64)
	spike(h, 10)
	spike(h, 15)
	spike(h, 20)

	// 10/15/20 also contains the 10/20 FM pair; MFM must win.
	ct, ok := h.DetectTiming()
	if !ok || ct.Encoding != EncodingMFM {
		t.Errorf("got %+v ok=%v, want MFM", ct, ok)
	}
}

func TestDetectTiming_ScaledBins(t *testing.T) {
	h := NewWithScale(64, 2, 0)
	spike(h, 20) // sample values 20/30/40 land in bins 10/15/20
	spike(h, 30)
	spike(h, 40)

	ct, ok := h.DetectMFMTiming()
	if !ok {
		t.Fatal("MFM timing not detected with bin width 2")
	}
	if ct.CellTime != 20 {
		t.Errorf("CellTime = %v, want 20 (bin 10 times width 2)", ct.CellTime)
	}
}

func TestDensityLabel(t *testing.T) {
	cases := []struct {
		enc  Encoding
		ns   float64
		want string
	}{
		{EncodingMFM, 4000, "MFM DD"},
		{EncodingMFM, 2000, "MFM HD"},
		{EncodingMFM, 1000, "MFM ED"},
		{EncodingMFM, 6000, "unknown"},
		{EncodingFM, 4000, "FM SD"},
		{EncodingFM, 2000, "unknown"},
		{EncodingUnknown, 4000, "unknown"},
	}
	for _, tc := range cases {
		ct := CellTiming{Encoding: tc.enc}
		if got := ct.DensityLabel(tc.ns); got != tc.want {
			t.Errorf("DensityLabel(%v, %vns) = %q, want %q", tc.enc, tc.ns, got, tc.want)
		}
	}
}
