package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/probe.report/internal/config"
	"github.com/banshee-data/probe.report/internal/monitoring"
	"github.com/banshee-data/probe.report/internal/pipeline"
	"github.com/banshee-data/probe.report/internal/report"
	"github.com/banshee-data/probe.report/internal/trace"
)

func ivCmd() *cobra.Command {
	var (
		target     float64
		signed     bool
		logX, logY bool
		noPlots    bool
		noHTML     bool
	)
	cmd := &cobra.Command{
		Use:   "iv [file|dir]...",
		Short: "Summarise I-V sweeps: dark current, dI/dV and power-law slope",
		Long: "Analyse I-V sweeps. Directories are searched for I-V*.csv sample files.\n" +
			"Writes iv_summary.csv, I-V and slope PNGs and an HTML report into a\n" +
			"new time-stamped directory under --out.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("target-voltage") {
				cfg.TargetVoltage = &target
			}
			if cmd.Flags().Changed("signed") {
				abs := !signed
				cfg.AbsoluteCurrent = &abs
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			paths, err := resolveInputs(args, trace.KindIV)
			if err != nil {
				return err
			}
			batch := pipeline.NewBatch(fsys, cfg.GetWorkers())
			run := batch.RunIV(cmd.Context(), paths, pipeline.IVParamsFromConfig(cfg))
			if len(run.Results) == 0 {
				return fmt.Errorf("none of %d I-V files could be analysed", len(paths))
			}

			dir := batch.OutputDir(outDir, run.Started)
			if err := fsys.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := report.SaveFile(fsys, filepath.Join(dir, "iv_summary.csv"), func(w io.Writer) error {
				return report.WriteIVSummaryCSV(w, run.Summaries())
			}); err != nil {
				return err
			}
			if !noPlots {
				if err := writeIVPlots(dir, run, cfg, logX, logY); err != nil {
					return err
				}
			}
			if !noHTML {
				o := report.HTMLOptions{Title: "run " + run.ID, Scheme: cfg.GetColorScheme(), LogX: logX, LogY: logY}
				if err := report.SaveFile(fsys, filepath.Join(dir, "iv.html"), func(w io.Writer) error {
					return report.RenderIVHTML(w, run.Results, o)
				}); err != nil {
					return err
				}
			}

			monitoring.Logf("analysed %d/%d I-V files in %s", len(run.Results), len(paths), run.Elapsed)
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
	cmd.Flags().Float64Var(&target, "target-voltage", 0, "voltage at which the summary reports current (V)")
	cmd.Flags().BoolVar(&signed, "signed", false, "keep the sign of the current instead of |I|")
	cmd.Flags().BoolVar(&logX, "log-x", false, "logarithmic voltage axis")
	cmd.Flags().BoolVar(&logY, "log-y", false, "logarithmic current axis")
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip PNG output")
	cmd.Flags().BoolVar(&noHTML, "no-html", false, "skip the HTML report")
	return cmd
}

func writeIVPlots(dir string, run *pipeline.IVRun, cfg *config.AnalysisConfig, logX, logY bool) error {
	o := report.PlotOptions{Scheme: cfg.GetColorScheme(), LogX: logX, LogY: logY}
	curves, err := report.PlotIV(run.Results, o)
	if err != nil {
		return fmt.Errorf("plot I-V: %w", err)
	}
	if err := report.SavePNG(fsys, filepath.Join(dir, "iv.png"), curves); err != nil {
		return err
	}
	slopes, err := report.PlotSlope(run.Results, o)
	if err != nil {
		return fmt.Errorf("plot slope: %w", err)
	}
	return report.SavePNG(fsys, filepath.Join(dir, "iv_slope.png"), slopes)
}
