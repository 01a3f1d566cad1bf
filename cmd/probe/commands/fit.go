package commands

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/banshee-data/probe.report/internal/fit"
	"github.com/banshee-data/probe.report/internal/trace"
	"github.com/banshee-data/probe.report/internal/units"
)

func fitCmd() *cobra.Command {
	var (
		xCol, yCol string
		xUnit      string
		model      string
		guess      []float64
		maxIter    int
	)
	cmd := &cobra.Command{
		Use:   "fit [file]",
		Short: "Fit a decay or trap-emission model to two columns of a CSV file",
		Long: "Fit a model to two columns of a CSV file. The x column is converted\n" +
			"from --x-unit to amperes and both columns are taken as absolute values.\n" +
			"The default columns and model reproduce the two-term trap emission fit\n" +
			"of space-charge density against total current.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			m, err := fit.ParseModel(model)
			if err != nil {
				return err
			}
			if !units.IsValidCurrent(xUnit) {
				return fmt.Errorf("invalid --x-unit %q (want one of %s)", xUnit, units.GetValidCurrentUnitsString())
			}

			tbl, err := trace.LoadTable(fsys, args[0])
			if err != nil {
				return err
			}
			x, err := tbl.Floats(xCol)
			if err != nil {
				return err
			}
			y, err := tbl.Floats(yCol)
			if err != nil {
				return err
			}
			for i := range x {
				x[i] = math.Abs(units.ToAmps(x[i], xUnit))
				y[i] = math.Abs(y[i])
			}

			cfgGuess, cfgIter := cfg.GetTwoTermGuess(), cfg.GetTwoTermMaxIterations()
			switch m {
			case fit.PowerLaw:
				cfgGuess, cfgIter = cfg.GetPowerLawGuess(), cfg.GetMaxIterations()
			case fit.Exponential:
				cfgGuess, cfgIter = cfg.GetExponentialGuess(), cfg.GetMaxIterations()
			}
			if guess == nil {
				guess = cfgGuess
			}
			opts := &fit.Options{MaxIterations: maxIter}
			if maxIter == 0 {
				opts.MaxIterations = cfgIter
			}

			res, err := fit.Fit(m, x, y, guess, opts)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&xCol, "x-col", "Total Current (uA)", "independent variable column")
	cmd.Flags().StringVar(&yCol, "y-col", "rho (e/cm^3)", "dependent variable column")
	cmd.Flags().StringVar(&xUnit, "x-unit", units.UA, "current unit of the x column")
	cmd.Flags().StringVarP(&model, "model", "m", fit.TwoTerm.String(), "model: power_law, exponential or two_term")
	cmd.Flags().Float64SliceVar(&guess, "guess", nil, "initial parameters, comma separated")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "iteration cap (0 = config value)")
	return cmd
}

func printResult(cmd *cobra.Command, res *fit.Result) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "model: %s (%d iterations)\n", res.Model, res.Iterations)
	for i, name := range res.Names {
		if res.StdErr != nil && !math.IsNaN(res.StdErr[i]) {
			fmt.Fprintf(w, "  %-3s = %.6g ± %.2g\n", name, res.Params[i], res.StdErr[i])
		} else {
			fmt.Fprintf(w, "  %-3s = %.6g\n", name, res.Params[i])
		}
	}
	if tau, ok := res.TimeConstant(); ok {
		fmt.Fprintf(w, "  tau = %.6g s\n", tau)
	}
	fmt.Fprintf(w, "RMSE: %.6g\n", res.RMSE)
	if res.R2Defined {
		fmt.Fprintf(w, "R²:   %.6f\n", res.R2)
	} else {
		fmt.Fprintln(w, "R²:   undefined (constant data)")
	}
}
