package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/probe.report/internal/pipeline"
)

// maxChartPoints bounds each HTML series; longer traces are decimated.
const maxChartPoints = 2000

// HTMLOptions controls the interactive report.
type HTMLOptions struct {
	Title  string
	Scheme string
	LogX   bool
	LogY   bool
}

func axisType(log bool) string {
	if log {
		return "log"
	}
	return "value"
}

// scatterData converts finite (x, y) pairs, positive ones only on log axes,
// decimating to at most maxChartPoints.
func scatterData(x, y []float64, logX, logY bool) []opts.ScatterData {
	stride := 1
	if len(x) > maxChartPoints {
		stride = (len(x) + maxChartPoints - 1) / maxChartPoints
	}
	data := make([]opts.ScatterData, 0, len(x)/stride+1)
	for i := 0; i < len(x); i += stride {
		xv, yv := x[i], y[i]
		if math.IsNaN(xv) || math.IsInf(xv, 0) || math.IsNaN(yv) || math.IsInf(yv, 0) {
			continue
		}
		if (logX && xv <= 0) || (logY && yv <= 0) {
			continue
		}
		data = append(data, opts.ScatterData{Value: []interface{}{xv, yv}})
	}
	return data
}

func newScatter(title, subtitle, xName, yName string, logX, logY bool) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: axisType(logX), Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: axisType(logY), Name: yName, NameLocation: "middle", NameGap: 60}),
	)
	return scatter
}

func newBar(title, subtitle string, names []string, values []opts.BarData) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries(title, values,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// barValue returns v for a bar chart, with unset values as empty bars.
func barValue(v float64) opts.BarData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.BarData{Value: nil}
	}
	return opts.BarData{Value: v}
}

// RenderITHTML writes an interactive page with the aligned traces overlaid
// and per-file afterglow and leakage bar charts.
func RenderITHTML(w io.Writer, results []*pipeline.ITResult, o HTMLOptions) error {
	colors := Palette(o.Scheme, len(results))
	overlay := newScatter("I-t traces", o.Title, "Time (s)", "Current (A)", false, o.LogY)
	names := make([]string, len(results))
	afterglow := make([]opts.BarData, len(results))
	leakage := make([]opts.BarData, len(results))
	for i, r := range results {
		t := r.Aligned
		overlay.AddSeries(r.Trace.Label(), scatterData(t.X, t.Current, false, o.LogY),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Hex(colors[i])}),
		)
		names[i] = r.Record.Label
		afterglow[i] = barValue(r.Record.AfterglowMillis())
		leakage[i] = barValue(r.Record.Leakage)
	}

	page := components.NewPage()
	page.PageTitle = pageTitle(o.Title, "I-t analysis")
	page.AddCharts(
		overlay,
		newBar("Afterglow time (ms)", o.Title, names, afterglow),
		newBar("Leakage current (A)", o.Title, names, leakage),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render I-t page: %w", err)
	}
	return nil
}

// RenderIVHTML writes an interactive page with the I-V curves, their
// power-law slopes and the current at the target voltage.
func RenderIVHTML(w io.Writer, results []*pipeline.IVResult, o HTMLOptions) error {
	colors := Palette(o.Scheme, len(results))
	curves := newScatter("I-V curves", o.Title, "Voltage (V)", "Current (A)", o.LogX, o.LogY)
	slopes := newScatter("Power-law slope", o.Title, "Voltage (V)", "d log I / d log V", o.LogX, false)
	names := make([]string, len(results))
	dark := make([]opts.BarData, len(results))
	target := 0.0
	for i, r := range results {
		style := charts.WithItemStyleOpts(opts.ItemStyle{Color: Hex(colors[i])})
		size := charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5})
		label := r.Summary.Label
		curves.AddSeries(label+" (V ≥ 0)", scatterData(r.Positive.X, r.Positive.Current, o.LogX, o.LogY), size, style)
		curves.AddSeries(label+" (V < 0)", scatterData(r.Negative.X, r.Negative.Current, o.LogX, o.LogY), size, style)
		slopes.AddSeries(label+" (V ≥ 0)", scatterData(r.PositiveLog.X, r.PositiveSlope, o.LogX, false), size, style)
		slopes.AddSeries(label+" (V < 0)", scatterData(r.NegativeLog.X, r.NegativeSlope, o.LogX, false), size, style)
		names[i] = label
		dark[i] = barValue(r.Summary.CurrentAtTarget)
		target = r.Summary.TargetVoltage
	}

	page := components.NewPage()
	page.PageTitle = pageTitle(o.Title, "I-V analysis")
	page.AddCharts(
		curves,
		slopes,
		newBar(fmt.Sprintf("Dark current at %gV (A)", target), o.Title, names, dark),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render I-V page: %w", err)
	}
	return nil
}

func pageTitle(title, fallback string) string {
	if title == "" {
		return fallback
	}
	return fallback + " - " + title
}
