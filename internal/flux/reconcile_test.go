package flux

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReconcile_SingleRevolutionCopies(t *testing.T) {
	intervals := []uint32{100, 200, 300}
	tc := &TrackCapture{Revolutions: []RevolutionCapture{{Intervals: intervals}}}

	got := Reconcile(tc, Align(tc))
	if diff := cmp.Diff(intervals, got); diff != "" {
		t.Errorf("reconciled stream mismatch (-want +got):\n%s", diff)
	}

	// The result is a copy, not an alias.
	got[0] = 1
	if intervals[0] != 100 {
		t.Error("reconciled stream aliases the capture")
	}
}

func TestReconcile_AveragesJitter(t *testing.T) {
	tc := twoRevCapture(
		[]uint32{100, 200, 300},
		[]uint32{102, 200, 298},
	)
	got := Reconcile(tc, zeroAlignment(2))
	want := []uint32{101, 200, 299}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_UsesOffsets(t *testing.T) {
	tc := twoRevCapture(
		[]uint32{100, 150, 200},
		[]uint32{999, 100, 150, 200},
	)
	got := Reconcile(tc, Alignment{Offsets: []int{0, 1}})
	want := []uint32{100, 150, 200}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_EmptyCapture(t *testing.T) {
	if got := Reconcile(nil, Alignment{}); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := Reconcile(&TrackCapture{}, Alignment{}); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestShortestRevolution(t *testing.T) {
	tc := twoRevCapture(make([]uint32, 10), make([]uint32, 7))
	if got := tc.ShortestRevolution(); got != 7 {
		t.Errorf("got %d, want 7", got)
	}
	if got := (&TrackCapture{}).ShortestRevolution(); got != 0 {
		t.Errorf("empty: got %d, want 0", got)
	}
}
