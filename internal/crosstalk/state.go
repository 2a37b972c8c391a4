// Package crosstalk detects and optionally filters inter-track interference
// in decoded track byte buffers. A long-lived State carries the neighbor
// reference buffers and running tallies for one disk-processing session;
// per-call results come back as immutable Result reports.
package crosstalk

// Mode selects what Process does with a track buffer.
type Mode int

const (
	// ModeOff disables analysis entirely; every call is a no-op.
	ModeOff Mode = iota
	// ModeDetect reports interference without touching the buffer.
	ModeDetect
	// ModeFilter subtracts detected interference from the buffer.
	ModeFilter
	// ModeAggressive filters with the detection threshold halved, trading
	// false positives for stronger cleanup on badly degraded media.
	ModeAggressive
)

// ParseMode maps a mode name, as it appears in tuning files and flags,
// back to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "off":
		return ModeOff, true
	case "detect":
		return ModeDetect, true
	case "filter":
		return ModeFilter, true
	case "aggressive":
		return ModeAggressive, true
	default:
		return ModeOff, false
	}
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeDetect:
		return "detect"
	case ModeFilter:
		return "filter"
	case ModeAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// Side names a neighbor track relative to the one under analysis.
type Side int

const (
	SideLower Side = -1 // track - 1
	SideUpper Side = +1 // track + 1
)

const (
	// WindowSize is the analysis granularity in bytes.
	WindowSize = 64

	// DefaultThreshold is the interference level above which a window
	// counts as affected. Empirical; override via Config.
	DefaultThreshold = 0.3
)

// Config tunes a crosstalk session.
type Config struct {
	Mode      Mode
	Threshold float64
	// UseLower/UseUpper gate which neighbor references participate even
	// when both buffers are set.
	UseLower bool
	UseUpper bool
	// Adaptive raises the effective threshold to the observed mean window
	// level when that mean exceeds the configured threshold, so media whose
	// format structure repeats across tracks is not flagged wholesale.
	Adaptive bool
}

// DefaultConfig returns detection-only analysis against both neighbors.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeDetect,
		Threshold: DefaultThreshold,
		UseLower:  true,
		UseUpper:  true,
	}
}

// Result is one analysis pass's report. It is produced fresh per call and
// never mutated afterward.
type Result struct {
	Analyzed   int     // windows examined
	Detected   int     // windows above threshold
	Filtered   int     // windows rewritten
	MaxLevel   float64 // highest window level seen
	AvgLevel   float64 // mean level over detected windows
	Percentage float64 // detected/analyzed * 100
	Source     Side    // dominant neighbor, 0 when undetermined
	// Quality heuristics for upstream reporting, 0..100.
	QualityBefore float64
	QualityAfter  float64
}

// State is the caller-owned session context: the track under analysis, owned
// copies of the neighbor references, the configuration and running totals.
// Create one per disk and Reset it between disks. Not safe for concurrent
// use.
type State struct {
	cfg   Config
	track int
	head  int

	refLower []byte
	refUpper []byte

	totalAnalyzed uint64
	totalDetected uint64
	totalFiltered uint64
}

// NewState builds a session with the given configuration. A zero threshold
// falls back to DefaultThreshold.
func NewState(cfg Config) *State {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &State{cfg: cfg}
}

// Config returns the active configuration.
func (s *State) Config() Config { return s.cfg }

// SetTrack records which physical track and head the next buffers belong to.
func (s *State) SetTrack(track, head int) {
	s.track = track
	s.head = head
}

// SetReference installs an owned copy of a neighbor track's buffer. A nil
// buffer clears that side.
func (s *State) SetReference(side Side, data []byte) {
	var ref []byte
	if len(data) > 0 {
		ref = make([]byte, len(data))
		copy(ref, data)
	}
	switch side {
	case SideLower:
		s.refLower = ref
	case SideUpper:
		s.refUpper = ref
	}
}

// Reset drops the references and running totals, keeping the configuration.
// Call it between disks.
func (s *State) Reset() {
	s.refLower = nil
	s.refUpper = nil
	s.totalAnalyzed = 0
	s.totalDetected = 0
	s.totalFiltered = 0
}

// Totals reports the running analyzed/detected/filtered window counts
// accumulated since the last Reset.
func (s *State) Totals() (analyzed, detected, filtered uint64) {
	return s.totalAnalyzed, s.totalDetected, s.totalFiltered
}

// activeRefs returns the reference buffers the configuration admits.
func (s *State) activeRefs() (lower, upper []byte) {
	if s.cfg.UseLower {
		lower = s.refLower
	}
	if s.cfg.UseUpper {
		upper = s.refUpper
	}
	return lower, upper
}
