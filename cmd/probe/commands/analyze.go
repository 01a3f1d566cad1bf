package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/probe.report/internal/config"
	"github.com/banshee-data/probe.report/internal/fsutil"
	"github.com/banshee-data/probe.report/internal/monitoring"
	"github.com/banshee-data/probe.report/internal/pipeline"
	"github.com/banshee-data/probe.report/internal/report"
	"github.com/banshee-data/probe.report/internal/stats"
	"github.com/banshee-data/probe.report/internal/trace"
	"github.com/banshee-data/probe.report/internal/units"
)

func analyzeCmd() *cobra.Command {
	var (
		threshold float64
		align     string
		shift     float64
		fitEdge   bool
		noPlots   bool
		noHTML    bool
		logY      bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [file|dir]...",
		Short: "Detect pulses and report leakage and afterglow for I-t traces",
		Long: "Analyse I-t traces. Directories are searched for I-t*.csv sample files.\n" +
			"Writes stats.csv, one PNG per trace, an overlay PNG and an HTML report\n" +
			"into a new time-stamped directory under --out.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				cfg.ThresholdCurrent = &threshold
			}
			if flags.Changed("align") {
				cfg.AlignMode = &align
			}
			if flags.Changed("shift") {
				cfg.AlignmentShift = &shift
			}
			if flags.Changed("fit") {
				cfg.FitFallingEdge = &fitEdge
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			paths, err := resolveInputs(args, trace.KindIT)
			if err != nil {
				return err
			}
			batch := pipeline.NewBatch(fsys, cfg.GetWorkers())
			run := batch.RunIT(cmd.Context(), paths, pipeline.ITParamsFromConfig(cfg))
			if len(run.Results) == 0 {
				return fmt.Errorf("none of %d I-t files could be analysed", len(paths))
			}

			dir := batch.OutputDir(outDir, run.Started)
			if err := fsys.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := report.SaveFile(fsys, filepath.Join(dir, "stats.csv"), func(w io.Writer) error {
				return report.WriteStatsCSV(w, run.Records())
			}); err != nil {
				return err
			}
			if !noPlots {
				if err := writeITPlots(dir, run, cfg, logY); err != nil {
					return err
				}
			}
			if !noHTML {
				o := report.HTMLOptions{Title: "run " + run.ID, Scheme: cfg.GetColorScheme(), LogY: logY}
				if err := report.SaveFile(fsys, filepath.Join(dir, "report.html"), func(w io.Writer) error {
					return report.RenderITHTML(w, run.Results, o)
				}); err != nil {
					return err
				}
			}

			monitoring.Logf("analysed %d/%d I-t files in %s", len(run.Results), len(paths), run.Elapsed)
			logRunSummary(run.Records())
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "pulse threshold current (A)")
	cmd.Flags().StringVar(&align, "align", config.AlignStart, "time alignment: start, end or raw")
	cmd.Flags().Float64Var(&shift, "shift", 0, "extra alignment shift (s)")
	cmd.Flags().BoolVar(&fitEdge, "fit", false, "fit power-law and exponential decays to the falling edge")
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip PNG output")
	cmd.Flags().BoolVar(&noHTML, "no-html", false, "skip the HTML report")
	cmd.Flags().BoolVar(&logY, "log-y", false, "logarithmic current axis")
	return cmd
}

// logRunSummary reports leakage and afterglow across every analysed file.
func logRunSummary(records []*stats.Record) {
	leak := stats.Summarize(records, func(r *stats.Record) float64 { return r.Leakage })
	if leak.Count > 0 {
		monitoring.Logf("leakage: %.4g ± %.2g nA over %d files (min %.4g, max %.4g)",
			units.FromAmps(leak.Mean, units.NA), units.FromAmps(leak.StdDev, units.NA), leak.Count,
			units.FromAmps(leak.Min, units.NA), units.FromAmps(leak.Max, units.NA))
	}
	glow := stats.Summarize(records, (*stats.Record).AfterglowMillis)
	if glow.Count > 0 {
		monitoring.Logf("afterglow: %.4g ± %.2g ms over %d files (min %.4g, max %.4g)",
			glow.Mean, glow.StdDev, glow.Count, glow.Min, glow.Max)
	}
}

func writeITPlots(dir string, run *pipeline.ITRun, cfg *config.AnalysisConfig, logY bool) error {
	o := report.PlotOptions{
		Scheme:  cfg.GetColorScheme(),
		LogY:    logY,
		TimeMin: cfg.GetTimeMin(),
		TimeMax: cfg.GetTimeMax(),
	}
	threshold := cfg.GetThresholdCurrent()
	for _, r := range run.Results {
		p, err := report.PlotIT(r, threshold, o)
		if err != nil {
			return fmt.Errorf("plot %s: %w", r.Trace.Name, err)
		}
		if err := report.SavePNG(fsys, filepath.Join(dir, fsutil.SafeName(r.Trace.Name)+".png"), p); err != nil {
			return err
		}
	}
	p, err := report.PlotOverlay(run.Results, o)
	if err != nil {
		return fmt.Errorf("plot overlay: %w", err)
	}
	return report.SavePNG(fsys, filepath.Join(dir, "overlay.png"), p)
}
