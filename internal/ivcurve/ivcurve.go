// Package ivcurve derives diagnostics from I-V sweeps: the numerical
// derivative dI/dV, the local power-law slope d(log I)/d(log V), the split
// into positive and negative bias branches, and the current at a reference
// voltage.
package ivcurve

import (
	"math"
	"slices"

	"github.com/banshee-data/probe.report/internal/trace"
)

// DefaultTargetVoltage is the bias at which dark current is reported.
const DefaultTargetVoltage = 1000.0

// Gradient returns dy/dx at every sample using second-order central
// differences on a possibly non-uniform grid and first-order one-sided
// differences at both ends. Repeated x values produce ±Inf or NaN at the
// affected samples. Fewer than two samples yield NaN.
func Gradient(y, x []float64) []float64 {
	n := len(y)
	g := make([]float64, n)
	if n < 2 || len(x) != n {
		for i := range g {
			g[i] = math.NaN()
		}
		return g
	}
	g[0] = (y[1] - y[0]) / (x[1] - x[0])
	g[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])
	for i := 1; i < n-1; i++ {
		hl := x[i] - x[i-1]
		hr := x[i+1] - x[i]
		g[i] = (hl*hl*y[i+1] + (hr*hr-hl*hl)*y[i] - hr*hr*y[i-1]) / (hl * hr * (hl + hr))
	}
	return g
}

// FirstDerivative returns dI/dV for an I-V trace.
func FirstDerivative(t *trace.Trace) []float64 {
	return mask(Gradient(t.Current, t.X))
}

// PowerLawSlope returns d(log10 I)/d(log10 V) at every sample. The slope is
// only meaningful where both voltage and current are strictly positive;
// callers should pass the positive quadrant. Samples where either log is
// undefined, and any non-finite result, are NaN rather than an error.
func PowerLawSlope(t *trace.Trace) []float64 {
	lx := make([]float64, t.Len())
	ly := make([]float64, t.Len())
	for i := range lx {
		lx[i] = log10Positive(t.X[i])
		ly[i] = log10Positive(t.Current[i])
	}
	return mask(Gradient(ly, lx))
}

// PositiveQuadrant keeps the samples with V > 0 and I > 0.
func PositiveQuadrant(t *trace.Trace) *trace.Trace {
	return t.Filter(func(v, i float64) bool { return v > 0 && i > 0 })
}

// Branches splits a sweep by bias sign. The positive branch keeps V >= 0.
// The negative branch keeps V < 0 with voltage replaced by |V| and
// reordered so |V| increases, which lets both branches share a log axis.
func Branches(t *trace.Trace) (positive, negative *trace.Trace) {
	positive = t.Filter(func(v, _ float64) bool { return v >= 0 })
	neg := t.Filter(func(v, _ float64) bool { return v < 0 }).AbsX()
	slices.Reverse(neg.X)
	slices.Reverse(neg.Current)
	return positive, neg
}

// CurrentAt returns the current measured at voltage target. A sweep that
// never hit the target reports false; no interpolation is attempted.
func CurrentAt(t *trace.Trace, target float64) (float64, bool) {
	tol := 1e-9 * math.Max(1, math.Abs(target))
	for i, v := range t.X {
		if math.Abs(v-target) <= tol {
			return t.Current[i], true
		}
	}
	return 0, false
}

func log10Positive(v float64) float64 {
	if v <= 0 {
		return math.NaN()
	}
	return math.Log10(v)
}

// mask replaces ±Inf with NaN so callers only check one sentinel.
func mask(s []float64) []float64 {
	for i, v := range s {
		if math.IsInf(v, 0) {
			s[i] = math.NaN()
		}
	}
	return s
}
