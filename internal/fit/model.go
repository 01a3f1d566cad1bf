// Package fit performs bounded nonlinear least-squares fits of the decay
// and trap-emission models used to characterise probe-station traces.
package fit

import (
	"fmt"
	"math"
	"strings"
)

// Model identifies a curve family.
type Model int

const (
	// PowerLaw is I(t) = (t - a)^n + c - a.
	PowerLaw Model = iota
	// Exponential is I(t) = exp(-a*t + b) + c.
	Exponential
	// TwoTerm is the trap-emission model
	// y(x) = N1*k*x/(k*x + exp(-E1/kT)) - N2*exp(-E2/kT)/(k*x + exp(-E2/kT)).
	TwoTerm
)

// Fixed constants of the two-term model.
const (
	CaptureCoefficient = 1.3e-6 // k
	ThermalEnergy      = 0.025  // kT in eV
)

var modelNames = map[Model]string{
	PowerLaw:    "power_law",
	Exponential: "exponential",
	TwoTerm:     "two_term",
}

func (m Model) String() string {
	if s, ok := modelNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel accepts the String form of a model, case-insensitively, with
// '-' and '_' interchangeable.
func ParseModel(s string) (Model, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for m, name := range modelNames {
		if name == norm {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown model %q", ErrBadInput, s)
}

// ParamNames returns the parameter names in the order Eval expects them.
func (m Model) ParamNames() []string {
	switch m {
	case PowerLaw:
		return []string{"a", "n", "c"}
	case Exponential:
		return []string{"a", "b", "c"}
	case TwoTerm:
		return []string{"N1", "E1", "N2", "E2"}
	}
	return nil
}

// NumParams returns the number of free parameters.
func (m Model) NumParams() int { return len(m.ParamNames()) }

// DefaultGuess returns the starting point used when none is configured.
func (m Model) DefaultGuess() []float64 {
	switch m {
	case PowerLaw:
		return []float64{0.1, -1e-7, 5e-8}
	case Exponential:
		return []float64{1e2, 1e2, 5e-8}
	case TwoTerm:
		return []float64{1e11, 0.65, 1e10, 0.58}
	}
	return nil
}

// Bounds returns the default parameter box. Two-term parameters are
// physical densities and activation energies and are kept non-negative.
func (m Model) Bounds() (lower, upper []float64) {
	n := m.NumParams()
	lower, upper = make([]float64, n), make([]float64, n)
	for i := range n {
		lower[i], upper[i] = math.Inf(-1), math.Inf(1)
		if m == TwoTerm {
			lower[i] = 0
		}
	}
	return lower, upper
}

// Eval returns the model value at x. It may return NaN or ±Inf for
// parameters outside the model's numerical domain; callers check.
func (m Model) Eval(x float64, p []float64) float64 {
	switch m {
	case PowerLaw:
		a, n, c := p[0], p[1], p[2]
		return math.Pow(x-a, n) + c - a
	case Exponential:
		a, b, c := p[0], p[1], p[2]
		return math.Exp(-a*x+b) + c
	case TwoTerm:
		n1, e1, n2, e2 := p[0], p[1], p[2], p[3]
		kx := CaptureCoefficient * x
		b1 := math.Exp(-e1 / ThermalEnergy)
		b2 := math.Exp(-e2 / ThermalEnergy)
		return n1*kx/(kx+b1) - n2*b2/(kx+b2)
	}
	return math.NaN()
}

// Curve evaluates the model at every x.
func (m Model) Curve(x, p []float64) []float64 {
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = m.Eval(v, p)
	}
	return y
}
