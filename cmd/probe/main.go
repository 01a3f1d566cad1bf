// Command probe analyses probe-station I-t and I-V traces: pulse detection,
// leakage and afterglow statistics, decay fits, I-V slopes, and CSV, PNG and
// HTML reports.
package main

import (
	"os"

	"github.com/banshee-data/probe.report/cmd/probe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
