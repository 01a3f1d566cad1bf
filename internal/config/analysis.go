// Package config loads the JSON analysis configuration. Every field is a
// pointer so a partial file only overrides what it names; the Get* methods
// supply the defaults for the rest.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// Alignment modes for the I-t time axis.
const (
	AlignStart = "start"
	AlignEnd   = "end"
	AlignRaw   = "raw"
)

// AnalysisConfig holds the tunable parameters of the I-t and I-V analyses.
type AnalysisConfig struct {
	// Pulse detection and alignment
	ThresholdCurrent *float64 `json:"threshold_current,omitempty"` // amperes
	AlignMode        *string  `json:"align_mode,omitempty"`
	AlignmentShift   *float64 `json:"alignment_shift,omitempty"` // seconds
	TimeMin          *float64 `json:"time_min,omitempty"`
	TimeMax          *float64 `json:"time_max,omitempty"`

	// Edges
	LeftEdgeMargin    *int `json:"left_edge_margin,omitempty"`
	RightEdgeMargin   *int `json:"right_edge_margin,omitempty"`
	FallingEdgeMargin *int `json:"falling_edge_margin,omitempty"`
	FallingPoints     *int `json:"falling_points,omitempty"`

	// Statistics
	FirstNPoints *int     `json:"first_n_points,omitempty"`
	LastNPoints  *int     `json:"last_n_points,omitempty"`
	PercentDrop  *float64 `json:"percent_drop,omitempty"`

	// Fits
	FitFallingEdge       *bool     `json:"fit_falling_edge,omitempty"`
	PowerLawGuess        []float64 `json:"power_law_guess,omitempty"`
	ExponentialGuess     []float64 `json:"exponential_guess,omitempty"`
	TwoTermGuess         []float64 `json:"two_term_guess,omitempty"`
	MaxIterations        *int      `json:"max_iterations,omitempty"`
	TwoTermMaxIterations *int      `json:"two_term_max_iterations,omitempty"`

	// I-V
	TargetVoltage   *float64 `json:"target_voltage,omitempty"`
	AbsoluteCurrent *bool    `json:"absolute_current,omitempty"`

	// Batch and output
	Workers     *int    `json:"workers,omitempty"`
	ColorScheme *string `json:"color_scheme,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its default.
func DefaultAnalysisConfig() *AnalysisConfig {
	e := EmptyAnalysisConfig()
	return &AnalysisConfig{
		ThresholdCurrent:     ptrFloat64(e.GetThresholdCurrent()),
		AlignMode:            ptrString(e.GetAlignMode()),
		AlignmentShift:       ptrFloat64(e.GetAlignmentShift()),
		TimeMin:              ptrFloat64(e.GetTimeMin()),
		TimeMax:              ptrFloat64(e.GetTimeMax()),
		LeftEdgeMargin:       ptrInt(e.GetLeftEdgeMargin()),
		RightEdgeMargin:      ptrInt(e.GetRightEdgeMargin()),
		FallingEdgeMargin:    ptrInt(e.GetFallingEdgeMargin()),
		FallingPoints:        ptrInt(e.GetFallingPoints()),
		FirstNPoints:         ptrInt(e.GetFirstNPoints()),
		LastNPoints:          ptrInt(e.GetLastNPoints()),
		PercentDrop:          ptrFloat64(e.GetPercentDrop()),
		FitFallingEdge:       ptrBool(e.GetFitFallingEdge()),
		PowerLawGuess:        e.GetPowerLawGuess(),
		ExponentialGuess:     e.GetExponentialGuess(),
		TwoTermGuess:         e.GetTwoTermGuess(),
		MaxIterations:        ptrInt(e.GetMaxIterations()),
		TwoTermMaxIterations: ptrInt(e.GetTwoTermMaxIterations()),
		TargetVoltage:        ptrFloat64(e.GetTargetVoltage()),
		AbsoluteCurrent:      ptrBool(e.GetAbsoluteCurrent()),
		Workers:              ptrInt(e.GetWorkers()),
		ColorScheme:          ptrString(e.GetColorScheme()),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file. The file must
// have a .json extension and be under 1MB. Fields omitted from the file keep
// their defaults.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // from cmd/<tool>/ subpackages
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *AnalysisConfig) Validate() error {
	if c.ThresholdCurrent != nil && *c.ThresholdCurrent < 0 {
		return fmt.Errorf("threshold_current must be non-negative, got %g", *c.ThresholdCurrent)
	}
	if c.AlignMode != nil {
		if _, err := ParseAlignMode(*c.AlignMode); err != nil {
			return err
		}
	}
	if c.GetTimeMin() >= c.GetTimeMax() {
		return fmt.Errorf("time_min (%g) must be below time_max (%g)", c.GetTimeMin(), c.GetTimeMax())
	}
	for name, v := range map[string]*int{
		"left_edge_margin":    c.LeftEdgeMargin,
		"right_edge_margin":   c.RightEdgeMargin,
		"falling_edge_margin": c.FallingEdgeMargin,
		"workers":             c.Workers,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}
	for name, v := range map[string]*int{
		"falling_points":          c.FallingPoints,
		"first_n_points":          c.FirstNPoints,
		"last_n_points":           c.LastNPoints,
		"max_iterations":          c.MaxIterations,
		"two_term_max_iterations": c.TwoTermMaxIterations,
	} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *v)
		}
	}
	if c.PercentDrop != nil && !(*c.PercentDrop > 0 && *c.PercentDrop <= 1) {
		return fmt.Errorf("percent_drop must be in (0, 1], got %g", *c.PercentDrop)
	}
	for name, g := range map[string]struct {
		vals []float64
		n    int
	}{
		"power_law_guess":   {c.PowerLawGuess, 3},
		"exponential_guess": {c.ExponentialGuess, 3},
		"two_term_guess":    {c.TwoTermGuess, 4},
	} {
		if g.vals != nil && len(g.vals) != g.n {
			return fmt.Errorf("%s must have %d values, got %d", name, g.n, len(g.vals))
		}
	}
	return nil
}

// ParseAlignMode normalises an alignment mode name.
func ParseAlignMode(s string) (string, error) {
	switch m := strings.ToLower(strings.TrimSpace(s)); m {
	case AlignStart, AlignEnd, AlignRaw:
		return m, nil
	default:
		return "", fmt.Errorf("invalid align_mode %q (want %s, %s or %s)", s, AlignStart, AlignEnd, AlignRaw)
	}
}

// GetThresholdCurrent returns the pulse threshold in amperes.
func (c *AnalysisConfig) GetThresholdCurrent() float64 {
	if c.ThresholdCurrent == nil {
		return 2e-6 // 2000 nA
	}
	return *c.ThresholdCurrent
}

// GetAlignMode returns the normalised alignment mode.
func (c *AnalysisConfig) GetAlignMode() string {
	if c.AlignMode == nil {
		return AlignStart
	}
	m, err := ParseAlignMode(*c.AlignMode)
	if err != nil {
		return AlignStart
	}
	return m
}

func (c *AnalysisConfig) GetAlignmentShift() float64 {
	if c.AlignmentShift == nil {
		return 0
	}
	return *c.AlignmentShift
}

func (c *AnalysisConfig) GetTimeMin() float64 {
	if c.TimeMin == nil {
		return -0.2
	}
	return *c.TimeMin
}

func (c *AnalysisConfig) GetTimeMax() float64 {
	if c.TimeMax == nil {
		return 1.8
	}
	return *c.TimeMax
}

func (c *AnalysisConfig) GetLeftEdgeMargin() int {
	if c.LeftEdgeMargin == nil {
		return 0
	}
	return *c.LeftEdgeMargin
}

func (c *AnalysisConfig) GetRightEdgeMargin() int {
	if c.RightEdgeMargin == nil {
		return 0
	}
	return *c.RightEdgeMargin
}

func (c *AnalysisConfig) GetFallingEdgeMargin() int {
	if c.FallingEdgeMargin == nil {
		return 0
	}
	return *c.FallingEdgeMargin
}

// GetFallingPoints returns the falling-edge window size in samples.
func (c *AnalysisConfig) GetFallingPoints() int {
	if c.FallingPoints == nil {
		return 400
	}
	return *c.FallingPoints
}

func (c *AnalysisConfig) GetFirstNPoints() int {
	if c.FirstNPoints == nil {
		return 10
	}
	return *c.FirstNPoints
}

func (c *AnalysisConfig) GetLastNPoints() int {
	if c.LastNPoints == nil {
		return 10
	}
	return *c.LastNPoints
}

// GetPercentDrop returns the afterglow drop fraction.
func (c *AnalysisConfig) GetPercentDrop() float64 {
	if c.PercentDrop == nil {
		return 0.98
	}
	return *c.PercentDrop
}

func (c *AnalysisConfig) GetFitFallingEdge() bool {
	if c.FitFallingEdge == nil {
		return false
	}
	return *c.FitFallingEdge
}

// GetPowerLawGuess returns a copy of the initial (a, n, c).
func (c *AnalysisConfig) GetPowerLawGuess() []float64 {
	if c.PowerLawGuess == nil {
		return []float64{0.1, -1e-7, 5e-8}
	}
	return append([]float64(nil), c.PowerLawGuess...)
}

// GetExponentialGuess returns a copy of the initial (a, b, c).
func (c *AnalysisConfig) GetExponentialGuess() []float64 {
	if c.ExponentialGuess == nil {
		return []float64{1e2, 1e2, 5e-8}
	}
	return append([]float64(nil), c.ExponentialGuess...)
}

// GetTwoTermGuess returns a copy of the initial (N1, E1, N2, E2).
func (c *AnalysisConfig) GetTwoTermGuess() []float64 {
	if c.TwoTermGuess == nil {
		return []float64{1e11, 0.65, 1e10, 0.58}
	}
	return append([]float64(nil), c.TwoTermGuess...)
}

func (c *AnalysisConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 1000
	}
	return *c.MaxIterations
}

func (c *AnalysisConfig) GetTwoTermMaxIterations() int {
	if c.TwoTermMaxIterations == nil {
		return 50000
	}
	return *c.TwoTermMaxIterations
}

// GetTargetVoltage returns the bias at which I-V dark current is reported.
func (c *AnalysisConfig) GetTargetVoltage() float64 {
	if c.TargetVoltage == nil {
		return 1000
	}
	return *c.TargetVoltage
}

func (c *AnalysisConfig) GetAbsoluteCurrent() bool {
	if c.AbsoluteCurrent == nil {
		return true
	}
	return *c.AbsoluteCurrent
}

// GetWorkers returns the batch concurrency; 0 means one per CPU.
func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

func (c *AnalysisConfig) GetColorScheme() string {
	if c.ColorScheme == nil || *c.ColorScheme == "" {
		return "Plotly"
	}
	return *c.ColorScheme
}
