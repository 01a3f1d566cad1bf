package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/probe.report/internal/trace"
)

func samplesCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "samples [dir]",
		Short: "List the I-t or I-V sample files in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			paths, err := trace.ListSamples(fsys, args[0], k)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "it", "measurement type: it or iv")
	return cmd
}

func parseKind(s string) (trace.Kind, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "it":
		return trace.KindIT, nil
	case "iv":
		return trace.KindIV, nil
	default:
		return 0, fmt.Errorf("invalid kind %q (want it or iv)", s)
	}
}
