package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/probe.report/internal/fit"
	"github.com/banshee-data/probe.report/internal/fsutil"
	"github.com/banshee-data/probe.report/internal/pipeline"
)

// PNG canvas size.
const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// PlotOptions controls figure appearance. A zero TimeMin and TimeMax
// disables the time window.
type PlotOptions struct {
	Scheme           string
	LogX, LogY       bool
	TimeMin, TimeMax float64
}

func (o PlotOptions) window(x float64) bool {
	if o.TimeMin == 0 && o.TimeMax == 0 {
		return true
	}
	return x >= o.TimeMin && x <= o.TimeMax
}

var dashed = []vg.Length{vg.Points(5), vg.Points(3)}

// series accumulates lines onto a plot and remembers whether any data was
// drawn, since a log axis over no data cannot be normalised.
type series struct {
	p          *plot.Plot
	logX, logY bool
	n          int
}

func newSeries(title, xLabel, yLabel string, logX, logY bool) *series {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())
	return &series{p: p, logX: logX, logY: logY}
}

// xys keeps finite points in the window, and positive ones on log axes.
func (s *series) xys(x, y []float64, keep func(x float64) bool) plotter.XYs {
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		xv, yv := x[i], y[i]
		if math.IsNaN(xv) || math.IsInf(xv, 0) || math.IsNaN(yv) || math.IsInf(yv, 0) {
			continue
		}
		if (s.logX && xv <= 0) || (s.logY && yv <= 0) {
			continue
		}
		if keep != nil && !keep(xv) {
			continue
		}
		pts = append(pts, plotter.XY{X: xv, Y: yv})
	}
	return pts
}

func (s *series) line(label string, pts plotter.XYs, c color.Color, width vg.Length, dashes []vg.Length) error {
	if len(pts) == 0 {
		return nil
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.Color = c
	l.Width = width
	l.Dashes = dashes
	s.p.Add(l)
	if label != "" {
		s.p.Legend.Add(label, l)
	}
	s.n += len(pts)
	return nil
}

func (s *series) marker(label string, pts plotter.XYs, c color.Color) error {
	if len(pts) == 0 {
		return nil
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(5)
	sc.GlyphStyle.Shape = draw.CrossGlyph{}
	s.p.Add(sc)
	if label != "" {
		s.p.Legend.Add(label, sc)
	}
	s.n += len(pts)
	return nil
}

// hline draws y = v across [x0, x1].
func (s *series) hline(label string, v, x0, x1 float64, c color.Color) error {
	return s.line(label, s.xys([]float64{x0, x1}, []float64{v, v}, nil), c, vg.Points(1), dashed)
}

func (s *series) finish() *plot.Plot {
	if s.n == 0 {
		return s.p
	}
	if s.logX {
		s.p.X.Scale = plot.LogScale{}
		s.p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if s.logY {
		s.p.Y.Scale = plot.LogScale{}
		s.p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return s.p
}

// PlotIT draws one I-t analysis: the aligned trace, its top and falling
// edges, the threshold, leakage levels, the afterglow crossing and any
// falling-edge fits.
func PlotIT(r *pipeline.ITResult, threshold float64, o PlotOptions) (*plot.Plot, error) {
	s := newSeries(r.Trace.Label(), "Time (s)", "Current (A)", false, o.LogY)
	colors := Palette(o.Scheme, 6)
	t := r.Aligned
	var x0, x1 float64
	if t.Len() > 0 {
		x0, x1 = t.X[0], t.X[t.Len()-1]
	}
	if o.TimeMin != 0 || o.TimeMax != 0 {
		x0, x1 = o.TimeMin, o.TimeMax
	}

	steps := []func() error{
		func() error { return s.line(r.Trace.Name, s.xys(t.X, t.Current, o.window), colors[0], vg.Points(1), nil) },
		func() error { return s.line("top edge", s.xys(r.Top.X(), r.Top.Current(), nil), colors[1], vg.Points(2), nil) },
		func() error {
			return s.line("falling edge", s.xys(r.Falling.X(), r.Falling.Current(), nil), colors[2], vg.Points(2), nil)
		},
		func() error { return s.hline("threshold", threshold, x0, x1, colors[3]) },
	}
	if r.Leakage != nil {
		steps = append(steps,
			func() error { return s.hline("leakage start", r.Leakage.Start, x0, x1, colors[4]) },
			func() error { return s.hline("leakage end", r.Leakage.End, x0, x1, colors[5]) },
		)
	}
	if a := r.Afterglow; a != nil && a.Found {
		steps = append(steps, func() error {
			label := fmt.Sprintf("afterglow %.3g ms", a.TimeDropMillis())
			return s.marker(label, s.xys([]float64{a.TimeAtDrop}, []float64{a.ThresholdDrop}, nil), color.Black)
		})
	}
	for _, f := range r.Fits {
		if f.Result == nil {
			continue
		}
		steps = append(steps, func() error {
			return s.line(fitLabel(f.Result), s.xys(r.Falling.X(), f.Result.Predicted, nil), color.Black, vg.Points(1), dashed)
		})
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("plot %s: %w", r.Trace.Name, err)
		}
	}
	return s.finish(), nil
}

func fitLabel(res *fit.Result) string {
	if tau, ok := res.TimeConstant(); ok {
		return fmt.Sprintf("%s fit (tau %.3g s)", res.Model, tau)
	}
	return fmt.Sprintf("%s fit (R² %.4f)", res.Model, res.R2)
}

// PlotOverlay draws every aligned I-t trace on one set of axes.
func PlotOverlay(results []*pipeline.ITResult, o PlotOptions) (*plot.Plot, error) {
	s := newSeries("I-t traces", "Time (s)", "Current (A)", false, o.LogY)
	colors := Palette(o.Scheme, len(results))
	for i, r := range results {
		t := r.Aligned
		if err := s.line(r.Trace.Label(), s.xys(t.X, t.Current, o.window), colors[i], vg.Points(1), nil); err != nil {
			return nil, fmt.Errorf("plot %s: %w", r.Trace.Name, err)
		}
	}
	return s.finish(), nil
}

// PlotIV draws each sweep's positive branch solid and its negative branch,
// as |V|, dashed.
func PlotIV(results []*pipeline.IVResult, o PlotOptions) (*plot.Plot, error) {
	s := newSeries("I-V curves", "Voltage (V)", "Current (A)", o.LogX, o.LogY)
	colors := Palette(o.Scheme, len(results))
	for i, r := range results {
		label := r.Summary.Label
		if err := s.line(label+" (V ≥ 0)", s.xys(r.Positive.X, r.Positive.Current, nil), colors[i], vg.Points(1), nil); err != nil {
			return nil, fmt.Errorf("plot %s: %w", r.Trace.Name, err)
		}
		if err := s.line(label+" (V < 0)", s.xys(r.Negative.X, r.Negative.Current, nil), colors[i], vg.Points(1), dashed); err != nil {
			return nil, fmt.Errorf("plot %s: %w", r.Trace.Name, err)
		}
	}
	return s.finish(), nil
}

// PlotSlope draws the power-law slope d(log I)/d(log V) of each branch.
func PlotSlope(results []*pipeline.IVResult, o PlotOptions) (*plot.Plot, error) {
	s := newSeries("Power-law slope", "Voltage (V)", "d log I / d log V", o.LogX, false)
	colors := Palette(o.Scheme, len(results))
	for i, r := range results {
		label := r.Summary.Label
		if err := s.line(label+" (V ≥ 0)", s.xys(r.PositiveLog.X, r.PositiveSlope, nil), colors[i], vg.Points(1), nil); err != nil {
			return nil, fmt.Errorf("plot %s: %w", r.Trace.Name, err)
		}
		if err := s.line(label+" (V < 0)", s.xys(r.NegativeLog.X, r.NegativeSlope, nil), colors[i], vg.Points(1), dashed); err != nil {
			return nil, fmt.Errorf("plot %s: %w", r.Trace.Name, err)
		}
	}
	return s.finish(), nil
}

// SavePNG renders p as a PNG at path on fsys.
func SavePNG(fsys fsutil.FileSystem, path string, p *plot.Plot) (err error) {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if _, err := wt.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
