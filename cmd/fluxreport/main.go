// Command fluxreport runs the flux recovery pipeline over a SuperCard Pro
// image or a live Greaseweazle drive: per-track alignment, weak-bit and
// crosstalk analysis, spindle speed measurement, and disk-wide bit-cell
// classification. Results go to stdout and optionally to a sqlite database
// and a standalone HTML report.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/preserva-tech/flux.report/internal/analysisdb"
	"github.com/preserva-tech/flux.report/internal/config"
	"github.com/preserva-tech/flux.report/internal/crosstalk"
	"github.com/preserva-tech/flux.report/internal/device/greaseweazle"
	"github.com/preserva-tech/flux.report/internal/flux"
	"github.com/preserva-tech/flux.report/internal/histogram"
	"github.com/preserva-tech/flux.report/internal/monitoring"
	"github.com/preserva-tech/flux.report/internal/report"
	"github.com/preserva-tech/flux.report/internal/scpfile"
	"github.com/preserva-tech/flux.report/internal/version"
)

// histogramBinWidthNS spans 256 bins over 12.8us, enough for every
// supported density down to double density MFM.
const histogramBinWidthNS = 50

type runConfig struct {
	ImagePath  string
	DevicePort string
	Cylinders  int
	ConfigPath string
	DBPath     string
	ReportPath string
	Mode       string
	Verbose    bool
}

func main() {
	var cfg runConfig
	flag.StringVar(&cfg.ImagePath, "image", "", "SuperCard Pro (.scp) image to analyse")
	flag.StringVar(&cfg.DevicePort, "device", "", "Greaseweazle serial port (used when -image is empty)")
	flag.IntVar(&cfg.Cylinders, "cylinders", 80, "cylinders to read from a device")
	flag.StringVar(&cfg.ConfigPath, "config", "", "tuning config JSON (built-in defaults when empty)")
	flag.StringVar(&cfg.DBPath, "db", "", "sqlite analysis database (not persisted when empty)")
	flag.StringVar(&cfg.ReportPath, "report", "", "write an HTML report to this path")
	flag.StringVar(&cfg.Mode, "crosstalk", "", "crosstalk mode override: off, detect, filter, aggressive")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "log per-track capture detail")
	flag.Parse()

	if cfg.ImagePath == "" && cfg.DevicePort == "" {
		flag.Usage()
		os.Exit(2)
	}
	monitoring.SetDebug(cfg.Verbose)
	monitoring.Logf("fluxreport %s (%s)", version.Version, version.GitSHA)

	if err := run(cfg); err != nil {
		log.Fatalf("fluxreport: %v", err)
	}
}

func run(cfg runConfig) error {
	tuning := config.EmptyTuningConfig()
	if cfg.ConfigPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("load tuning config: %w", err)
		}
	}

	modeName := tuning.GetCrosstalkMode()
	if cfg.Mode != "" {
		modeName = cfg.Mode
	}
	mode, ok := crosstalk.ParseMode(modeName)
	if !ok {
		return fmt.Errorf("unknown crosstalk mode %q", modeName)
	}

	var (
		captures []*flux.TrackCapture
		source   string
		diskType string
		err      error
	)
	if cfg.ImagePath != "" {
		source = cfg.ImagePath
		captures, diskType, err = readImage(cfg.ImagePath)
	} else {
		source = cfg.DevicePort
		captures, err = readDevice(cfg.DevicePort, cfg.Cylinders, tuning.GetReadRevolutions())
	}
	if err != nil {
		return err
	}
	if len(captures) == 0 {
		return errors.New("no tracks captured")
	}
	monitoring.Logf("captured %d tracks from %s", len(captures), source)

	reports, hist := analyse(captures, tuning, mode)

	hist.Smooth(tuning.GetSmoothWindow())
	var timing *histogram.CellTiming
	if ct, ok := hist.DetectTiming(); ok {
		timing = &ct
		monitoring.Logf("bit cell: %s, %.0fns (%s)",
			ct.Encoding, ct.CellTime, ct.DensityLabel(ct.CellTime))
		for i := range reports {
			reports[i].Encoding = ct.Encoding.String()
			reports[i].CellTimeNS = ct.CellTime
		}
	} else {
		monitoring.Logf("bit cell: no recognisable encoding")
	}

	for _, r := range reports {
		monitoring.Logf("track %d.%d: revs=%d rpm=%.1f align=%.2f weak=%d crosstalk=%.0f%% quality=%.0f->%.0f",
			r.Track, r.Head, r.Revolutions, r.MeanRPM, r.AlignmentQuality,
			r.WeakBitCount, r.CrosstalkPercentage, r.QualityBefore, r.QualityAfter)
	}

	if cfg.DBPath != "" {
		if err := persist(cfg.DBPath, source, diskType, reports); err != nil {
			return err
		}
	}

	if cfg.ReportPath != "" {
		err := report.RenderFile(cfg.ReportPath, &report.Report{
			Title:     source,
			Source:    source,
			DiskType:  diskType,
			Histogram: hist,
			Timing:    timing,
			Tracks:    reports,
		})
		if err != nil {
			return err
		}
		monitoring.Logf("report written to %s", cfg.ReportPath)
	}
	return nil
}

// readImage loads every populated track of an SCP image.
func readImage(path string) ([]*flux.TrackCapture, string, error) {
	r, err := scpfile.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	h := r.Header()
	diskType := scpfile.DiskTypeName(h.DiskType)
	monitoring.Logf("image: %s, %d revolutions, tracks %d..%d, %dns resolution",
		diskType, h.Revolutions, h.StartTrack, h.EndTrack, h.Scale())

	var captures []*flux.TrackCapture
	for n := 0; n < scpfile.MaxTracks; n++ {
		if !r.HasTrack(n) {
			continue
		}
		tc, err := r.ReadTrack(n)
		if err != nil {
			return nil, "", fmt.Errorf("track %d: %w", n, err)
		}
		captures = append(captures, tc)
	}
	return captures, diskType, nil
}

// readDevice captures both heads of each cylinder from a Greaseweazle.
func readDevice(port string, cylinders, revolutions int) ([]*flux.TrackCapture, error) {
	d, err := greaseweazle.Open(port)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	if err := d.Select(0); err != nil {
		return nil, err
	}
	defer d.Deselect()
	if err := d.Motor(true); err != nil {
		return nil, err
	}
	defer d.Motor(false)

	var captures []*flux.TrackCapture
	for cyl := 0; cyl < cylinders; cyl++ {
		for head := 0; head < 2; head++ {
			tc, err := d.ReadTrackCapture(byte(cyl), byte(head), revolutions)
			if err != nil {
				return nil, err
			}
			captures = append(captures, tc)
		}
	}
	return captures, nil
}

// analyse runs the per-track pipeline and accumulates the disk-wide
// interval histogram from the reconciled tracks.
func analyse(captures []*flux.TrackCapture, tuning *config.TuningConfig, mode crosstalk.Mode) ([]analysisdb.TrackReport, *histogram.Histogram) {
	hist := histogram.NewWithScale(tuning.GetHistogramBins(), histogramBinWidthNS, 0)
	aligner := flux.AlignerConfig{MaxOffset: tuning.GetAlignMaxOffset()}
	weakCfg := flux.WeakBitConfig{
		Threshold: tuning.GetWeakBitThreshold(),
		Capacity:  tuning.GetWeakBitCapacity(),
	}

	reports := make([]analysisdb.TrackReport, len(captures))
	reconciled := make(map[[2]int][]byte, len(captures))
	for i, tc := range captures {
		a := aligner.Align(tc)
		weak := weakCfg.DetectWeakBits(tc, a)
		speed := flux.MeasureSpeed(tc)
		merged := flux.Reconcile(tc, a)

		hist.AddBatch(merged)
		reconciled[[2]int{tc.Track, tc.Head}] = quantize(merged)

		reports[i] = analysisdb.TrackReport{
			Track:             tc.Track,
			Head:              tc.Head,
			Revolutions:       len(tc.Revolutions),
			MeanRPM:           speed.MeanRPM,
			RPMVariance:       speed.Variance,
			AlignmentQuality:  a.Quality,
			WeakBitCount:      len(weak.Positions),
			WeakBitsTruncated: weak.Truncated,
		}
	}

	state := crosstalk.NewState(crosstalk.Config{
		Mode:      mode,
		Threshold: tuning.GetCrosstalkThreshold(),
		UseLower:  tuning.GetCrosstalkUseLower(),
		UseUpper:  tuning.GetCrosstalkUseUpper(),
		Adaptive:  tuning.GetCrosstalkAdaptive(),
	})
	for i, tc := range captures {
		data := reconciled[[2]int{tc.Track, tc.Head}]
		if len(data) == 0 || mode == crosstalk.ModeOff {
			continue
		}
		state.SetTrack(tc.Track, tc.Head)
		state.SetReference(crosstalk.SideLower, reconciled[[2]int{tc.Track - 1, tc.Head}])
		state.SetReference(crosstalk.SideUpper, reconciled[[2]int{tc.Track + 1, tc.Head}])

		res := state.Process(data)
		reports[i].CrosstalkPercentage = res.Percentage
		reports[i].QualityBefore = res.QualityBefore
		reports[i].QualityAfter = res.QualityAfter
	}

	analyzed, detected, filtered := state.Totals()
	if analyzed > 0 {
		monitoring.Logf("crosstalk (%s): %d windows analysed, %d affected, %d filtered",
			mode, analyzed, detected, filtered)
	}
	return reports, hist
}

// quantize compresses nanosecond flux intervals into byte resolution so
// adjacent tracks can be compared window-wise.
func quantize(intervals []uint32) []byte {
	out := make([]byte, len(intervals))
	for i, v := range intervals {
		v >>= 5
		if v > 255 {
			v = 255
		}
		out[i] = byte(v)
	}
	return out
}

// persist writes a session and its track reports to the analysis database.
func persist(path, source, diskType string, reports []analysisdb.TrackReport) error {
	db, err := analysisdb.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		return err
	}

	store := analysisdb.NewStore(db)
	sess := &analysisdb.Session{Source: source, DiskType: diskType}
	if err := store.InsertSession(sess); err != nil {
		return err
	}
	for i := range reports {
		reports[i].SessionID = sess.SessionID
		if err := store.InsertTrackReport(&reports[i]); err != nil {
			return err
		}
	}
	monitoring.Logf("session %s: %d track reports stored in %s", sess.SessionID, len(reports), path)
	return nil
}
