// Package flux holds the per-revolution capture model and the multi-read
// recovery passes that run on it: revolution alignment, weak-bit detection,
// stream reconciliation and rotational speed measurement.
//
// Interval sequences carry whatever unit the reader produced (the SCP reader
// emits nanoseconds); the recovery passes only compare values against each
// other. Index times are always in 25ns ticks, the capture hardware's native
// resolution. Every operation here is safe on empty or single-revolution
// input and degrades to a neutral result instead of returning an error.
package flux

// TickSeconds is the duration of one index-timer tick.
const TickSeconds = 25e-9

// MaxRevolutions is the most revolutions a track capture carries. Readers
// drop further revolutions rather than failing.
const MaxRevolutions = 5

// RevolutionCapture is one physical disk rotation: the flux interval
// sequence and the index-to-index time in 25ns ticks.
type RevolutionCapture struct {
	Intervals []uint32
	IndexTime uint32
}

// TrackCapture owns the revolutions captured for one physical track and
// head. It is built by a format reader or a device capture and handed to the
// recovery passes; nothing here retains it.
type TrackCapture struct {
	Track       int
	Head        int
	Revolutions []RevolutionCapture
}

// ShortestRevolution reports the sample count of the shortest revolution,
// or 0 when the capture is empty.
func (tc *TrackCapture) ShortestRevolution() int {
	if tc == nil || len(tc.Revolutions) == 0 {
		return 0
	}
	min := len(tc.Revolutions[0].Intervals)
	for _, rev := range tc.Revolutions[1:] {
		if len(rev.Intervals) < min {
			min = len(rev.Intervals)
		}
	}
	return min
}
