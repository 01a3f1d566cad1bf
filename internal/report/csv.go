package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/probe.report/internal/fsutil"
	"github.com/banshee-data/probe.report/internal/pipeline"
	"github.com/banshee-data/probe.report/internal/stats"
)

// StatsHeader is the column layout of the statistics export.
var StatsHeader = []string{
	"file_name",
	"Device ID",
	"Contact ID",
	"photocurrent_start",
	"photocurrent_end",
	"leakage_current",
	"percent_drop_threshold",
	"afterglow_time_ms",
	"afterglow_time",
}

// IVSummaryHeader is the column layout of the I-V summary export.
var IVSummaryHeader = []string{
	"file_name",
	"Device ID",
	"Contact ID",
	"Surface Treatment",
	"Guard Ring",
	"target_voltage",
	"current_at_target",
}

// WriteStatsCSV writes one row per record. Unset statistics are empty cells.
func WriteStatsCSV(w io.Writer, records []*stats.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StatsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.FileName,
			r.DeviceID,
			r.ContactID,
			formatCell(r.PhotocurrentMin),
			formatCell(r.PhotocurrentMax),
			formatCell(r.Leakage),
			formatCell(r.PercentDrop),
			formatCell(r.AfterglowMillis()),
			formatCell(r.AfterglowTime),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.FileName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIVSummaryCSV writes one row per I-V summary.
func WriteIVSummaryCSV(w io.Writer, rows []pipeline.IVSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(IVSummaryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range rows {
		row := []string{
			s.FileName,
			s.DeviceID,
			s.ContactID,
			s.SurfaceTreatment,
			s.GuardRing,
			formatCell(s.TargetVoltage),
			formatCell(s.CurrentAtTarget),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", s.FileName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile creates path on fsys and fills it with write (CSV or HTML).
func SaveFile(fsys fsutil.FileSystem, path string, write func(io.Writer) error) (err error) {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func formatCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
