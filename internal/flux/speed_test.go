package flux

import (
	"math"
	"testing"
)

// Index times in 25ns ticks.
const (
	ticks200ms = 8_000_000 // 300 RPM nominal
	ticks167ms = 6_666_800 // 360 RPM nominal
)

func TestRPM(t *testing.T) {
	cases := []struct {
		ticks uint32
		want  float64
		tol   float64
	}{
		{ticks200ms, 300.0, 0.01},
		{ticks167ms, 360.0, 0.01},
		{0, 0, 0},
	}
	for _, tc := range cases {
		got := RPM(tc.ticks)
		if math.Abs(got-tc.want) > tc.tol {
			t.Errorf("RPM(%d) = %v, want %v", tc.ticks, got, tc.want)
		}
	}
}

func TestMeasureSpeed_SteadyDrive(t *testing.T) {
	tc := &TrackCapture{Revolutions: []RevolutionCapture{
		{IndexTime: ticks200ms},
		{IndexTime: ticks200ms},
		{IndexTime: ticks200ms},
	}}
	r := MeasureSpeed(tc)
	if len(r.PerRevolution) != 3 {
		t.Fatalf("per-revolution len = %d", len(r.PerRevolution))
	}
	if math.Abs(r.MeanRPM-300.0) > 0.01 {
		t.Errorf("MeanRPM = %v, want ~300", r.MeanRPM)
	}
	if r.Variance != 0 {
		t.Errorf("Variance = %v, want 0 for a steady drive", r.Variance)
	}
}

func TestMeasureSpeed_FailedIndexRead(t *testing.T) {
	tc := &TrackCapture{Revolutions: []RevolutionCapture{
		{IndexTime: ticks200ms},
		{IndexTime: 0},
	}}
	r := MeasureSpeed(tc)
	if r.PerRevolution[1] != 0 {
		t.Errorf("per-revolution[1] = %v, want 0", r.PerRevolution[1])
	}
	if math.Abs(r.MeanRPM-150.0) > 0.01 {
		t.Errorf("MeanRPM = %v, want ~150 with the failed read included", r.MeanRPM)
	}
	if r.Variance <= 0 {
		t.Errorf("Variance = %v, want > 0", r.Variance)
	}
}

func TestMeasureSpeed_EmptyCapture(t *testing.T) {
	if r := MeasureSpeed(nil); r.MeanRPM != 0 || r.Variance != 0 || r.PerRevolution != nil {
		t.Errorf("nil capture: %+v", r)
	}
	if r := MeasureSpeed(&TrackCapture{}); r.MeanRPM != 0 {
		t.Errorf("empty capture: %+v", r)
	}
}
