package pipeline

import (
	"math"

	"github.com/banshee-data/probe.report/internal/ivcurve"
	"github.com/banshee-data/probe.report/internal/monitoring"
	"github.com/banshee-data/probe.report/internal/trace"
)

// IVSummary is one row of the I-V summary table.
type IVSummary struct {
	FileName         string
	DeviceID         string
	ContactID        string
	SurfaceTreatment string
	GuardRing        string
	Label            string
	TargetVoltage    float64
	// CurrentAtTarget is NaN when the sweep never reached TargetVoltage.
	CurrentAtTarget float64
}

// IVResult holds everything derived from one I-V sweep.
type IVResult struct {
	Trace *trace.Trace
	// Curve is Trace with |I| when absolute current was requested.
	Curve *trace.Trace
	// Derivative is dI/dV of the raw sweep, NaN where undefined.
	Derivative []float64

	// Positive keeps V >= 0; Negative holds V < 0 as |V|, ascending.
	Positive, Negative *trace.Trace
	// PositiveLog and NegativeLog are the samples of each branch with V > 0
	// and I > 0 (|I| on the reverse branch); the slopes index into them.
	PositiveLog, NegativeLog     *trace.Trace
	PositiveSlope, NegativeSlope []float64

	Summary IVSummary
}

// AnalyzeIV runs the I-V pipeline on t.
func AnalyzeIV(t *trace.Trace, p IVParams) *IVResult {
	r := &IVResult{Trace: t, Curve: t}
	if p.AbsoluteCurrent {
		r.Curve = t.AbsCurrent()
	}
	r.Derivative = ivcurve.FirstDerivative(t)
	r.Positive, r.Negative = ivcurve.Branches(r.Curve)
	r.PositiveLog = ivcurve.PositiveQuadrant(r.Positive)
	r.NegativeLog = ivcurve.PositiveQuadrant(r.Negative.AbsCurrent())
	r.PositiveSlope = ivcurve.PowerLawSlope(r.PositiveLog)
	r.NegativeSlope = ivcurve.PowerLawSlope(r.NegativeLog)

	st, _ := t.Metadata.Get(trace.MetaSurfaceTreatment)
	gr, _ := t.Metadata.Get(trace.MetaGuardRing)
	r.Summary = IVSummary{
		FileName:         t.Name,
		DeviceID:         t.DeviceID,
		ContactID:        t.ContactID,
		SurfaceTreatment: st,
		GuardRing:        gr,
		Label:            t.Label(),
		TargetVoltage:    p.TargetVoltage,
		CurrentAtTarget:  math.NaN(),
	}
	if c, ok := ivcurve.CurrentAt(t, p.TargetVoltage); ok {
		r.Summary.CurrentAtTarget = c
	} else {
		monitoring.Debugf("%s: no sample at %g V", t.Name, p.TargetVoltage)
	}
	return r
}
