package flux

import "gonum.org/v1/gonum/stat"

// RPM converts an index-to-index time in 25ns ticks to revolutions per
// minute. A zero index time is meaningless capture data and yields 0.
func RPM(indexTime uint32) float64 {
	if indexTime == 0 {
		return 0
	}
	return 60.0 / (float64(indexTime) * TickSeconds)
}

// SpeedReport aggregates rotational speed over a track capture.
type SpeedReport struct {
	PerRevolution []float64
	MeanRPM       float64
	Variance      float64
}

// MeasureSpeed computes per-revolution RPM plus the population mean and
// variance across the capture. Revolutions with a zero index time enter the
// aggregate as 0, dragging the mean down the same way a failed index read
// drags the physical measurement. An empty capture yields a zero report.
func MeasureSpeed(tc *TrackCapture) SpeedReport {
	if tc == nil || len(tc.Revolutions) == 0 {
		return SpeedReport{}
	}

	r := SpeedReport{PerRevolution: make([]float64, len(tc.Revolutions))}
	for i, rev := range tc.Revolutions {
		r.PerRevolution[i] = RPM(rev.IndexTime)
	}
	r.MeanRPM, r.Variance = stat.PopMeanVariance(r.PerRevolution, nil)
	return r
}
