// Package report renders a recovery session as a standalone HTML page:
// the flux interval histogram with its detected peaks, and per-track
// quality, speed and weak-bit charts.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/preserva-tech/flux.report/internal/analysisdb"
	"github.com/preserva-tech/flux.report/internal/histogram"
)

// Report is everything one rendered page needs.
type Report struct {
	Title    string
	Source   string
	DiskType string

	// Disk-wide interval histogram, optional.
	Histogram *histogram.Histogram
	Timing    *histogram.CellTiming

	Tracks []analysisdb.TrackReport
}

// Render writes the report as a self-contained HTML page.
func Render(w io.Writer, r *Report) error {
	page := components.NewPage()
	page.PageTitle = r.Title

	if r.Histogram != nil && r.Histogram.Total() > 0 {
		page.AddCharts(histogramChart(r))
	}
	if len(r.Tracks) > 0 {
		page.AddCharts(qualityChart(r.Tracks))
		page.AddCharts(speedChart(r.Tracks))
		page.AddCharts(weakBitsChart(r.Tracks))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// RenderFile renders the report to path, creating or truncating it.
func RenderFile(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := Render(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// histogramChart plots the interval histogram as a bar chart with the
// detected peaks overlaid as scatter markers.
func histogramChart(r *Report) components.Charter {
	h := r.Histogram
	peaks := h.FindPeaks(0, 0)
	stats := h.ComputeStats()

	// Plot only the occupied range, with a little margin either side.
	lo, hi := stats.MinBin, stats.MaxBin
	if lo < 0 {
		lo, hi = 0, h.Bins()-1
	}
	lo -= 2
	if lo < 0 {
		lo = 0
	}
	hi += 2
	if hi >= h.Bins() {
		hi = h.Bins() - 1
	}

	x := make([]string, 0, hi-lo+1)
	bars := make([]opts.BarData, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		ns := float64(h.Offset()) + (float64(i)+0.5)*h.BinWidth()
		x = append(x, fmt.Sprintf("%.0f", ns))
		bars = append(bars, opts.BarData{Value: h.Get(i)})
	}

	subtitle := fmt.Sprintf("source=%s samples=%d peaks=%d", r.Source, h.Total(), len(peaks))
	if r.Timing != nil {
		subtitle += fmt.Sprintf(" encoding=%s cell=%.0fns", r.Timing.Encoding, r.Timing.CellTime)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Flux Interval Histogram", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "interval (ns)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	bar.SetXAxis(x).AddSeries("intervals", bars)

	if len(peaks) > 0 {
		pts := make([]opts.ScatterData, 0, len(peaks))
		for _, p := range peaks {
			if p.Position < lo || p.Position > hi {
				continue
			}
			pts = append(pts, opts.ScatterData{Value: []interface{}{p.Position - lo, p.Count}})
		}
		scatter := charts.NewScatter()
		scatter.AddSeries("peaks", pts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}),
		)
		bar.Overlap(scatter)
	}
	return bar
}

func trackLabels(tracks []analysisdb.TrackReport) []string {
	labels := make([]string, len(tracks))
	for i, t := range tracks {
		labels[i] = fmt.Sprintf("%d.%d", t.Track, t.Head)
	}
	return labels
}

// qualityChart compares read quality before and after crosstalk filtering,
// with the alignment quality alongside.
func qualityChart(tracks []analysisdb.TrackReport) components.Charter {
	before := make([]opts.BarData, len(tracks))
	after := make([]opts.BarData, len(tracks))
	align := make([]opts.LineData, len(tracks))
	for i, t := range tracks {
		before[i] = opts.BarData{Value: t.QualityBefore}
		after[i] = opts.BarData{Value: t.QualityAfter}
		align[i] = opts.LineData{Value: t.AlignmentQuality * 100}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{Title: "Track Quality", Subtitle: fmt.Sprintf("tracks=%d", len(tracks))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "track.head"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "quality", Max: 105}),
	)
	bar.SetXAxis(trackLabels(tracks)).
		AddSeries("before filter", before).
		AddSeries("after filter", after)

	line := charts.NewLine()
	line.AddSeries("alignment x100", align)
	bar.Overlap(line)
	return bar
}

// speedChart plots the measured spindle speed per track.
func speedChart(tracks []analysisdb.TrackReport) components.Charter {
	rpm := make([]opts.LineData, len(tracks))
	for i, t := range tracks {
		rpm[i] = opts.LineData{Value: t.MeanRPM}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "350px"}),
		charts.WithTitleOpts(opts.Title{Title: "Spindle Speed"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "track.head"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "RPM"}),
	)
	line.SetXAxis(trackLabels(tracks)).
		AddSeries("mean RPM", rpm, charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	return line
}

// weakBitsChart plots the weak-bit count per track.
func weakBitsChart(tracks []analysisdb.TrackReport) components.Charter {
	weak := make([]opts.BarData, len(tracks))
	for i, t := range tracks {
		weak[i] = opts.BarData{Value: t.WeakBitCount}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "350px"}),
		charts.WithTitleOpts(opts.Title{Title: "Weak Bits", Subtitle: time.Now().UTC().Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "track.head"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "weak positions"}),
	)
	bar.SetXAxis(trackLabels(tracks)).
		AddSeries("weak bits", weak,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}
