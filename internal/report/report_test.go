package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/preserva-tech/flux.report/internal/analysisdb"
	"github.com/preserva-tech/flux.report/internal/histogram"
)

func sampleReport() *Report {
	h := histogram.NewWithScale(256, 50, 0)
	for _, center := range []uint32{2000, 3000, 4000} {
		for d := uint32(0); d < 100; d += 25 {
			for n := 0; n < 20; n++ {
				h.Add(center + d)
				h.Add(center - d)
			}
		}
	}
	timing := &histogram.CellTiming{Encoding: histogram.EncodingMFM, CellTime: 2000}

	return &Report{
		Title:     "disk1",
		Source:    "images/disk1.scp",
		DiskType:  "3.5 inch DD",
		Histogram: h,
		Timing:    timing,
		Tracks: []analysisdb.TrackReport{
			{Track: 0, Head: 0, MeanRPM: 300.2, AlignmentQuality: 0.95, WeakBitCount: 3, QualityBefore: 88, QualityAfter: 94},
			{Track: 0, Head: 1, MeanRPM: 299.8, AlignmentQuality: 0.91, WeakBitCount: 0, QualityBefore: 97, QualityAfter: 97},
			{Track: 1, Head: 0, MeanRPM: 300.5, AlignmentQuality: 0.99, WeakBitCount: 12, QualityBefore: 71, QualityAfter: 85},
		},
	}
}

func TestRender_AllSections(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render: %v", err)
	}

	html := buf.String()
	for _, want := range []string{
		"Flux Interval Histogram",
		"encoding=MFM",
		"Track Quality",
		"Spindle Speed",
		"Weak Bits",
		"after filter",
		"0.1", // track.head label
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page lacks %q", want)
		}
	}
}

func TestRender_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, &Report{Title: "empty"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty report produced no output")
	}
}

func TestRender_HistogramOnly(t *testing.T) {
	r := sampleReport()
	r.Tracks = nil

	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "Flux Interval Histogram") {
		t.Error("missing histogram section")
	}
	if strings.Contains(html, "Track Quality") {
		t.Error("track sections rendered without tracks")
	}
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := RenderFile(path, sampleReport()); err != nil {
		t.Fatalf("RenderFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "Flux Interval Histogram") {
		t.Error("file lacks histogram section")
	}
}
