package pipeline

import (
	"fmt"

	"github.com/banshee-data/probe.report/internal/config"
	"github.com/banshee-data/probe.report/internal/fit"
	"github.com/banshee-data/probe.report/internal/monitoring"
	"github.com/banshee-data/probe.report/internal/pulse"
	"github.com/banshee-data/probe.report/internal/stats"
	"github.com/banshee-data/probe.report/internal/trace"
)

// FitOutcome is one fit attempt. Exactly one of Result and Err is set.
type FitOutcome struct {
	Model  fit.Model
	Result *fit.Result
	Err    error
}

// ITResult holds everything derived from one I-t trace.
type ITResult struct {
	Trace *trace.Trace
	// Aligned is Trace with Offset subtracted from every time. Segments
	// index into it.
	Aligned *trace.Trace
	Offset  float64

	Start, End pulse.Boundary
	Top        pulse.Segment
	Falling    pulse.Segment

	// Leakage and Afterglow are nil when their segment had too little data.
	Leakage   *stats.Leakage
	Afterglow *stats.Afterglow
	Fits      []FitOutcome

	Record   *stats.Record
	Warnings []string
}

func (r *ITResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	r.Record.Note(msg)
	monitoring.Warnf("%s: %s", r.Trace.Name, msg)
}

// AnalyzeIT runs the I-t pipeline on t. It never fails: a missing pulse,
// an empty segment or a failed fit is recorded as a warning and the
// dependent values are left unset.
func AnalyzeIT(t *trace.Trace, p ITParams) *ITResult {
	r := &ITResult{
		Trace:  t,
		Record: stats.NewRecord(t.Name, t.DeviceID, t.ContactID),
	}
	r.Record.Label = t.Label()

	r.Start, r.End = pulse.Detect(t, p.Threshold)
	if !r.Start.Found {
		r.warn("no sample above threshold %g A", p.Threshold)
	} else if !r.End.Found {
		r.warn("pulse start at sample %d is not followed by a pulse", r.Start.Index)
	} else if r.End.PastWindow {
		r.warn("pulse does not end within the recorded window")
	}

	r.Offset = p.AlignmentShift
	switch p.AlignMode {
	case config.AlignStart, "":
		r.Offset += alignOn(r, r.Start, "start")
	case config.AlignEnd:
		r.Offset += alignOn(r, r.End, "end")
	}
	r.Aligned = t.Shift(r.Offset)
	monitoring.Debugf("%s: start %v, end %v, offset %g s", t.Name, r.Start, r.End, r.Offset)

	r.Top = pulse.TopEdge(r.Aligned, r.Start, r.End, p.LeftMargin, p.RightMargin)
	// A pulse still on at the last sample has no falling edge.
	hasFalling := r.End.Found && !r.End.PastWindow
	if hasFalling {
		r.Falling = pulse.FallingEdge(r.Aligned, r.End, p.FallingMargin, p.FallingPoints)
	}

	if l, err := stats.CurrentDifference(r.Top, p.FirstN, p.LastN); err != nil {
		r.warn("top edge: %v", err)
	} else {
		r.Leakage = &l
		r.Record.SetLeakage(l)
	}

	if r.Falling.Empty() {
		if hasFalling {
			r.warn("falling edge is empty")
		}
	} else if a, err := stats.FallingTime(r.Falling, p.PercentDrop); err != nil {
		r.warn("falling edge: %v", err)
	} else {
		r.Afterglow = &a
		r.Record.SetAfterglow(a, p.PercentDrop)
		if !a.Found {
			r.warn("current never drops to %g A on the falling edge", a.ThresholdDrop)
		}
	}

	if p.FitFallingEdge && !r.Falling.Empty() {
		r.fitFallingEdge(p)
	}
	return r
}

// alignOn returns the boundary time to align on, or 0 when it was not found.
func alignOn(r *ITResult, b pulse.Boundary, which string) float64 {
	if !b.Found {
		r.warn("pulse %s not found, time axis left unaligned", which)
		return 0
	}
	return b.X
}

func (r *ITResult) fitFallingEdge(p ITParams) {
	opts := &fit.Options{MaxIterations: p.MaxIterations}
	x, y := r.Falling.X(), r.Falling.Current()
	for _, f := range []struct {
		model fit.Model
		guess []float64
	}{
		{fit.PowerLaw, p.PowerLawGuess},
		{fit.Exponential, p.ExponentialGuess},
	} {
		res, err := fit.Fit(f.model, x, y, f.guess, opts)
		r.Fits = append(r.Fits, FitOutcome{Model: f.model, Result: res, Err: err})
		if err != nil {
			r.warn("%v", err)
			continue
		}
		monitoring.Debugf("%s: %s fit %v after %d iterations, RMSE %g", r.Trace.Name, f.model, res.Params, res.Iterations, res.RMSE)
	}
}

// Fit returns the successful fit of model m, if any.
func (r *ITResult) Fit(m fit.Model) (*fit.Result, bool) {
	for _, f := range r.Fits {
		if f.Model == m && f.Result != nil {
			return f.Result, true
		}
	}
	return nil, false
}
