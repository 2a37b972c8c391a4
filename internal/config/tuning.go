package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for the recovery pipeline. Every
// field is a pointer so a partial JSON file overrides only what it names;
// the Get* methods supply defaults for the rest.
type TuningConfig struct {
	// Histogram params
	HistogramBins *int `json:"histogram_bins,omitempty"`
	SmoothWindow  *int `json:"smooth_window,omitempty"`

	// Aligner / weak-bit params
	AlignMaxOffset   *int     `json:"align_max_offset,omitempty"`
	WeakBitThreshold *float64 `json:"weak_bit_threshold,omitempty"`
	WeakBitCapacity  *int     `json:"weak_bit_capacity,omitempty"`

	// Crosstalk params
	CrosstalkMode      *string  `json:"crosstalk_mode,omitempty"` // off, detect, filter, aggressive
	CrosstalkThreshold *float64 `json:"crosstalk_threshold,omitempty"`
	CrosstalkUseLower  *bool    `json:"crosstalk_use_lower,omitempty"`
	CrosstalkUseUpper  *bool    `json:"crosstalk_use_upper,omitempty"`
	CrosstalkAdaptive  *bool    `json:"crosstalk_adaptive,omitempty"`

	// Capture params
	ReadRevolutions *int `json:"read_revolutions,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file fall back to defaults, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the current directory. Panics if
// the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.HistogramBins != nil && *c.HistogramBins < 0 {
		return fmt.Errorf("histogram_bins must be non-negative, got %d", *c.HistogramBins)
	}

	if c.WeakBitThreshold != nil {
		if *c.WeakBitThreshold <= 0 || *c.WeakBitThreshold > 1 {
			return fmt.Errorf("weak_bit_threshold must be in (0, 1], got %f", *c.WeakBitThreshold)
		}
	}

	if c.CrosstalkThreshold != nil {
		if *c.CrosstalkThreshold <= 0 || *c.CrosstalkThreshold > 1 {
			return fmt.Errorf("crosstalk_threshold must be in (0, 1], got %f", *c.CrosstalkThreshold)
		}
	}

	if c.CrosstalkMode != nil {
		switch *c.CrosstalkMode {
		case "off", "detect", "filter", "aggressive":
		default:
			return fmt.Errorf("unknown crosstalk_mode %q", *c.CrosstalkMode)
		}
	}

	if c.ReadRevolutions != nil {
		if *c.ReadRevolutions < 1 {
			return fmt.Errorf("read_revolutions must be at least 1, got %d", *c.ReadRevolutions)
		}
	}

	return nil
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *TuningConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return 256 // default
	}
	return *c.HistogramBins
}

// GetSmoothWindow returns the smooth_window value or the default.
func (c *TuningConfig) GetSmoothWindow() int {
	if c.SmoothWindow == nil {
		return 0 // default: no smoothing
	}
	return *c.SmoothWindow
}

// GetAlignMaxOffset returns the align_max_offset value or the default.
func (c *TuningConfig) GetAlignMaxOffset() int {
	if c.AlignMaxOffset == nil {
		return 100
	}
	return *c.AlignMaxOffset
}

// GetWeakBitThreshold returns the weak_bit_threshold value or the default.
func (c *TuningConfig) GetWeakBitThreshold() float64 {
	if c.WeakBitThreshold == nil {
		return 0.2
	}
	return *c.WeakBitThreshold
}

// GetWeakBitCapacity returns the weak_bit_capacity value or the default.
func (c *TuningConfig) GetWeakBitCapacity() int {
	if c.WeakBitCapacity == nil {
		return 256
	}
	return *c.WeakBitCapacity
}

// GetCrosstalkMode returns the crosstalk_mode value or the default.
func (c *TuningConfig) GetCrosstalkMode() string {
	if c.CrosstalkMode == nil {
		return "detect"
	}
	return *c.CrosstalkMode
}

// GetCrosstalkThreshold returns the crosstalk_threshold value or the default.
func (c *TuningConfig) GetCrosstalkThreshold() float64 {
	if c.CrosstalkThreshold == nil {
		return 0.3
	}
	return *c.CrosstalkThreshold
}

// GetCrosstalkUseLower returns the crosstalk_use_lower value or the default.
func (c *TuningConfig) GetCrosstalkUseLower() bool {
	if c.CrosstalkUseLower == nil {
		return true
	}
	return *c.CrosstalkUseLower
}

// GetCrosstalkUseUpper returns the crosstalk_use_upper value or the default.
func (c *TuningConfig) GetCrosstalkUseUpper() bool {
	if c.CrosstalkUseUpper == nil {
		return true
	}
	return *c.CrosstalkUseUpper
}

// GetCrosstalkAdaptive returns the crosstalk_adaptive value or the default.
func (c *TuningConfig) GetCrosstalkAdaptive() bool {
	if c.CrosstalkAdaptive == nil {
		return false
	}
	return *c.CrosstalkAdaptive
}

// GetReadRevolutions returns the read_revolutions value or the default.
func (c *TuningConfig) GetReadRevolutions() int {
	if c.ReadRevolutions == nil {
		return 3
	}
	return *c.ReadRevolutions
}
