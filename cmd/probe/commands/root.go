package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/probe.report/internal/config"
	"github.com/banshee-data/probe.report/internal/fsutil"
	"github.com/banshee-data/probe.report/internal/monitoring"
	"github.com/banshee-data/probe.report/internal/trace"
)

// fsys is where traces are read and reports written. Tests swap in a
// MemoryFileSystem.
var fsys fsutil.FileSystem = fsutil.OSFileSystem{}

var (
	configPath string
	verbose    bool
	workers    int
	scheme     string
	outDir     string
)

// Execute runs the probe command tree until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "probe",
		Short:        "Analyse probe-station I-t and I-V traces",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			monitoring.SetVerbose(verbose)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "analysis config JSON (default: built-in defaults)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	root.PersistentFlags().IntVar(&workers, "workers", 0, "files analysed concurrently (0 = GOMAXPROCS)")
	root.PersistentFlags().StringVar(&scheme, "scheme", "", "plot colour scheme")
	root.PersistentFlags().StringVarP(&outDir, "out", "o", "output", "base directory for run output")

	root.AddCommand(analyzeCmd(), ivCmd(), fitCmd(), samplesCmd(), versionCmd())
	return root
}

// loadConfig reads --config when given and applies the persistent flag
// overrides. The caller applies its own flags and then validates.
func loadConfig(cmd *cobra.Command) (*config.AnalysisConfig, error) {
	cfg := config.EmptyAnalysisConfig()
	if configPath != "" {
		loaded, err := config.LoadAnalysisConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		monitoring.Debugf("loaded config from %s", configPath)
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = &workers
	}
	if flags.Changed("scheme") {
		cfg.ColorScheme = &scheme
	}
	return cfg, nil
}

// resolveInputs expands directory arguments into their sample files of kind
// and passes file arguments through unchanged.
func resolveInputs(args []string, kind trace.Kind) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := fsys.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := trace.ListSamples(fsys, arg, kind)
		if err != nil {
			return nil, err
		}
		monitoring.Debugf("%s: %d %s files", arg, len(found), kind)
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s files found in %v", kind, args)
	}
	return paths, nil
}
