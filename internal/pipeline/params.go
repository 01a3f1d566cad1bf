// Package pipeline runs the per-file analyses: load, detect the pulse,
// extract edges, compute statistics and fits for I-t traces, and derivative
// and slope diagnostics for I-V sweeps. Batch fans the per-file work out
// over a bounded worker pool.
package pipeline

import (
	"github.com/banshee-data/probe.report/internal/config"
)

// ITParams are the inputs of an I-t analysis. They are plain values; how
// they were collected is the caller's concern.
type ITParams struct {
	Threshold      float64 // amperes
	AlignMode      string  // config.AlignStart, AlignEnd or AlignRaw
	AlignmentShift float64 // seconds

	LeftMargin    int
	RightMargin   int
	FallingMargin int
	FallingPoints int

	FirstN      int
	LastN       int
	PercentDrop float64

	FitFallingEdge   bool
	PowerLawGuess    []float64
	ExponentialGuess []float64
	MaxIterations    int
}

// IVParams are the inputs of an I-V analysis.
type IVParams struct {
	TargetVoltage   float64
	AbsoluteCurrent bool
}

// ITParamsFromConfig resolves cfg into ITParams.
func ITParamsFromConfig(cfg *config.AnalysisConfig) ITParams {
	return ITParams{
		Threshold:        cfg.GetThresholdCurrent(),
		AlignMode:        cfg.GetAlignMode(),
		AlignmentShift:   cfg.GetAlignmentShift(),
		LeftMargin:       cfg.GetLeftEdgeMargin(),
		RightMargin:      cfg.GetRightEdgeMargin(),
		FallingMargin:    cfg.GetFallingEdgeMargin(),
		FallingPoints:    cfg.GetFallingPoints(),
		FirstN:           cfg.GetFirstNPoints(),
		LastN:            cfg.GetLastNPoints(),
		PercentDrop:      cfg.GetPercentDrop(),
		FitFallingEdge:   cfg.GetFitFallingEdge(),
		PowerLawGuess:    cfg.GetPowerLawGuess(),
		ExponentialGuess: cfg.GetExponentialGuess(),
		MaxIterations:    cfg.GetMaxIterations(),
	}
}

// IVParamsFromConfig resolves cfg into IVParams.
func IVParamsFromConfig(cfg *config.AnalysisConfig) IVParams {
	return IVParams{
		TargetVoltage:   cfg.GetTargetVoltage(),
		AbsoluteCurrent: cfg.GetAbsoluteCurrent(),
	}
}
