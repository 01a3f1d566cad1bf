package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Iteration caps. The two-term model starts far from its minimum more often
// than not and gets a much larger cap.
const (
	DefaultMaxIterations        = 1000
	DefaultTwoTermMaxIterations = 50000
)

const (
	defaultXTol    = 1e-10
	defaultFTol    = 1e-12
	initialDamping = 1e-3
	minDamping     = 1e-15
	maxDamping     = 1e16
	jacobianStep   = 1e-6
)

// Options tunes a fit. A nil *Options or zero fields take the defaults.
type Options struct {
	MaxIterations int
	// Lower and Upper bound each parameter. Nil means the model's Bounds.
	Lower, Upper []float64
	// XTol stops the fit when the relative parameter step falls below it;
	// FTol stops it when the relative cost reduction does.
	XTol, FTol float64
}

func (o *Options) resolve(m Model) Options {
	var r Options
	if o != nil {
		r = *o
	}
	if r.MaxIterations <= 0 {
		r.MaxIterations = DefaultMaxIterations
		if m == TwoTerm {
			r.MaxIterations = DefaultTwoTermMaxIterations
		}
	}
	if r.Lower == nil || r.Upper == nil {
		lo, hi := m.Bounds()
		if r.Lower == nil {
			r.Lower = lo
		}
		if r.Upper == nil {
			r.Upper = hi
		}
	}
	if r.XTol <= 0 {
		r.XTol = defaultXTol
	}
	if r.FTol <= 0 {
		r.FTol = defaultFTol
	}
	return r
}

// Result is a converged fit.
type Result struct {
	Model  Model
	Params []float64
	Names  []string
	// StdErr holds one-sigma parameter uncertainties from the covariance
	// at the solution. Nil when the normal matrix could not be inverted or
	// there are no degrees of freedom.
	StdErr     []float64
	Iterations int
	RMSE       float64
	// R2 is NaN and R2Defined false when y has zero variance.
	R2        float64
	R2Defined bool
	Predicted []float64
}

// Param returns the fitted value of the named parameter.
func (r *Result) Param(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Params[i], true
		}
	}
	return 0, false
}

// Eval evaluates the fitted curve at x.
func (r *Result) Eval(x float64) float64 { return r.Model.Eval(x, r.Params) }

// TimeConstant returns 1/a for an exponential fit.
func (r *Result) TimeConstant() (float64, bool) {
	if r.Model != Exponential || r.Params[0] == 0 {
		return 0, false
	}
	return 1 / r.Params[0], true
}

// FitPowerLaw fits (t - a)^n + c - a.
func FitPowerLaw(t, current, initial []float64, opts *Options) (*Result, error) {
	return Fit(PowerLaw, t, current, initial, opts)
}

// FitExponential fits exp(-a*t + b) + c.
func FitExponential(t, current, initial []float64, opts *Options) (*Result, error) {
	return Fit(Exponential, t, current, initial, opts)
}

// FitTwoTerm fits the trap-emission model with non-negative parameters.
func FitTwoTerm(x, y, initial []float64, opts *Options) (*Result, error) {
	return Fit(TwoTerm, x, y, initial, opts)
}

// Fit runs a bounded Levenberg-Marquardt least-squares fit of model m to
// (x, y) from initial, or from m.DefaultGuess when initial is nil.
//
// Parameters are optimised in units of their initial magnitude so that
// quantities of very different scale (densities near 1e11 next to energies
// near 0.6) share one damping term. Steps are projected onto the bounds.
// Every failure is returned as a *Failure.
func Fit(m Model, x, y, initial []float64, opts *Options) (*Result, error) {
	o := opts.resolve(m)
	fail := func(kind FailureKind, iter int, err error) (*Result, error) {
		return nil, &Failure{Model: m, Kind: kind, Iterations: iter, Err: err}
	}

	n := m.NumParams()
	if initial == nil {
		initial = m.DefaultGuess()
	}
	switch {
	case n == 0:
		return fail(InvalidInput, 0, fmt.Errorf("%w: unknown model", ErrBadInput))
	case len(x) != len(y):
		return fail(InvalidInput, 0, fmt.Errorf("%w: %d x values, %d y values", ErrBadInput, len(x), len(y)))
	case len(initial) != n:
		return fail(InvalidInput, 0, fmt.Errorf("%w: %d initial values for %d parameters", ErrBadInput, len(initial), n))
	case len(o.Lower) != n || len(o.Upper) != n:
		return fail(InvalidInput, 0, fmt.Errorf("%w: bounds must have %d entries", ErrBadInput, n))
	case len(x) < n:
		return fail(InvalidInput, 0, fmt.Errorf("%w: %d points for %d parameters", ErrInsufficientData, len(x), n))
	}
	if !allFinite(x) || !allFinite(y) || !allFinite(initial) {
		return fail(InvalidInput, 0, fmt.Errorf("%w: non-finite input", ErrBadInput))
	}

	scale := make([]float64, n)
	q := make([]float64, n)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for j, v := range initial {
		if o.Lower[j] > o.Upper[j] {
			return fail(InvalidInput, 0, fmt.Errorf("%w: %s lower bound above upper", ErrBadInput, m.ParamNames()[j]))
		}
		v = clamp(v, o.Lower[j], o.Upper[j])
		scale[j] = math.Abs(v)
		if scale[j] == 0 {
			scale[j] = 1
		}
		q[j] = v / scale[j]
		lo[j] = o.Lower[j] / scale[j]
		hi[j] = o.Upper[j] / scale[j]
	}

	pr := &problem{model: m, x: x, y: y, scale: scale, p: make([]float64, n)}
	rows := len(x)
	r := make([]float64, rows)
	pr.residuals(r, q)
	cost := floats.Dot(r, r) / 2
	if !isFinite(cost) {
		return fail(DomainError, 0, fmt.Errorf("%w: non-finite residual at initial guess", ErrDomain))
	}

	jac := mat.NewDense(rows, n, nil)
	aug := mat.NewDense(rows+n, n, nil)
	rhs := mat.NewVecDense(rows+n, nil)
	diag := make([]float64, n)
	trial := make([]float64, n)
	rTrial := make([]float64, rows)

	lambda := initialDamping
	needJac := true
	iter := 0
	for iter < o.MaxIterations {
		if needJac {
			if err := pr.jacobian(jac, q, diag); err != nil {
				kind := DomainError
				if errors.Is(err, ErrSingular) {
					kind = NonConvergence
				}
				return fail(kind, iter, err)
			}
			for i := range rows {
				for j := range n {
					aug.Set(i, j, jac.At(i, j))
				}
			}
			needJac = false
		}
		iter++

		// Solve [J; sqrt(lambda*D)] step = [-r; 0] in the least-squares sense.
		for j := range n {
			for k := range n {
				aug.Set(rows+j, k, 0)
			}
			aug.Set(rows+j, j, math.Sqrt(lambda*diag[j]))
		}
		for i, v := range r {
			rhs.SetVec(i, -v)
		}
		for j := range n {
			rhs.SetVec(rows+j, 0)
		}
		var qr mat.QR
		qr.Factorize(aug)
		var step mat.VecDense
		if err := qr.SolveVecTo(&step, false, rhs); err != nil {
			if lambda *= 10; lambda > maxDamping {
				return fail(NonConvergence, iter, fmt.Errorf("%w: %v", ErrSingular, err))
			}
			continue
		}

		for j := range n {
			trial[j] = clamp(q[j]+step.AtVec(j), lo[j], hi[j])
		}
		stepNorm := floats.Distance(trial, q, 2)
		small := stepNorm <= o.XTol*(floats.Norm(q, 2)+o.XTol)

		pr.residuals(rTrial, trial)
		trialCost := floats.Dot(rTrial, rTrial) / 2
		if isFinite(trialCost) && trialCost < cost {
			reduction := cost - trialCost
			prev := cost
			copy(q, trial)
			copy(r, rTrial)
			cost = trialCost
			lambda = math.Max(lambda/10, minDamping)
			needJac = true
			if cost == 0 || small || reduction <= o.FTol*prev {
				return pr.result(q, r, iter), nil
			}
			continue
		}
		if small {
			return pr.result(q, r, iter), nil
		}
		if lambda *= 10; lambda > maxDamping {
			return fail(NonConvergence, iter, fmt.Errorf("%w: damping exhausted", ErrNotConverged))
		}
	}
	return fail(NonConvergence, iter, fmt.Errorf("%w: reached %d iterations", ErrNotConverged, o.MaxIterations))
}

// problem evaluates residuals in scaled parameter space.
type problem struct {
	model Model
	x, y  []float64
	scale []float64
	p     []float64
}

func (pr *problem) unscale(dst, q []float64) {
	for j, v := range q {
		dst[j] = v * pr.scale[j]
	}
}

func (pr *problem) residuals(r, q []float64) {
	pr.unscale(pr.p, q)
	for i, x := range pr.x {
		r[i] = pr.model.Eval(x, pr.p) - pr.y[i]
	}
}

// jacobian fills jac at q by central differences and diag with the column
// norms squared used to scale the damping, floored relative to the largest.
func (pr *problem) jacobian(jac *mat.Dense, q, diag []float64) error {
	fd.Jacobian(jac, pr.residuals, q, &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    jacobianStep,
	})
	rows, cols := jac.Dims()
	largest := 0.0
	for j := range cols {
		diag[j] = 0
		for i := range rows {
			v := jac.At(i, j)
			if !isFinite(v) {
				return fmt.Errorf("%w: non-finite jacobian", ErrDomain)
			}
			diag[j] += v * v
		}
		largest = math.Max(largest, diag[j])
	}
	if largest == 0 {
		return ErrSingular
	}
	for j := range diag {
		diag[j] = math.Max(diag[j], 1e-12*largest)
	}
	return nil
}

func (pr *problem) result(q, r []float64, iter int) *Result {
	n := len(q)
	params := make([]float64, n)
	pr.unscale(params, q)
	res := &Result{
		Model:      pr.model,
		Params:     params,
		Names:      pr.model.ParamNames(),
		Iterations: iter,
		RMSE:       math.Sqrt(floats.Dot(r, r) / float64(len(r))),
		Predicted:  pr.model.Curve(pr.x, params),
		R2:         math.NaN(),
	}
	if stat.Variance(pr.y, nil) > 0 {
		res.R2 = stat.RSquaredFrom(res.Predicted, pr.y, nil)
		res.R2Defined = true
	}
	res.StdErr = pr.stdErr(q, r)
	return res
}

// stdErr returns sqrt(diag(s² (JᵀJ)⁻¹)) mapped back to unscaled parameters.
func (pr *problem) stdErr(q, r []float64) []float64 {
	rows, n := len(r), len(q)
	if rows <= n {
		return nil
	}
	jac := mat.NewDense(rows, n, nil)
	if err := pr.jacobian(jac, q, make([]float64, n)); err != nil {
		return nil
	}
	var jtj, cov mat.Dense
	jtj.Mul(jac.T(), jac)
	if err := cov.Inverse(&jtj); err != nil {
		return nil
	}
	s2 := floats.Dot(r, r) / float64(rows-n)
	out := make([]float64, n)
	for j := range out {
		v := cov.At(j, j) * s2
		if v < 0 || !isFinite(v) {
			return nil
		}
		out[j] = math.Sqrt(v) * pr.scale[j]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func allFinite(s []float64) bool {
	for _, v := range s {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
