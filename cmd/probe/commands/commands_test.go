package commands

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/probe.report/internal/fit"
	"github.com/banshee-data/probe.report/internal/fsutil"
	"github.com/banshee-data/probe.report/internal/monitoring"
	"github.com/banshee-data/probe.report/internal/testutil"
	"github.com/banshee-data/probe.report/internal/trace"
	"github.com/banshee-data/probe.report/internal/units"
	"github.com/banshee-data/probe.report/internal/version"
)

func useMemoryFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	monitoring.SetLogger(nil)
	mem := fsutil.NewMemoryFileSystem()
	prev := fsys
	fsys = mem
	t.Cleanup(func() {
		fsys = prev
		monitoring.SetLogger(nil)
	})
	return mem
}

// captureLogs records every monitoring line until the test ends.
func captureLogs(t *testing.T) func() []string {
	t.Helper()
	var (
		mu    sync.Mutex
		lines []string
	)
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSampleDir(t *testing.T, mem *fsutil.MemoryFileSystem) {
	t.Helper()
	meta := map[string]string{trace.MetaSurfaceTreatment: "HF", trace.MetaGuardRing: "2"}
	pulse := testutil.DefaultPulse().Trace("I-t_a")
	testutil.WriteFile(t, mem, "/data/I-t_a.csv", testutil.CSV(pulse, meta, "D1", "C3"))

	volts := []float64{-1000, -500, -100, -10, 0, 10, 100, 500, 1000}
	iv := testutil.PowerLawIV("I-V_a", volts, 1e-12, 1.5)
	testutil.WriteFile(t, mem, "/data/I-V_a.csv", testutil.CSV(iv, meta, "D1", "C3"))
}

func TestAnalyze_WritesReports(t *testing.T) {
	mem := useMemoryFS(t)
	writeSampleDir(t, mem)

	out, err := execute(t, "analyze", "/data", "--out", "/out")
	require.NoError(t, err)
	dir := strings.TrimSpace(out)
	assert.Equal(t, "/out", filepath.Dir(dir))

	for _, name := range []string{"stats.csv", "I-t_a.png", "overlay.png", "report.html"} {
		assert.True(t, mem.Exists(filepath.Join(dir, name)), name)
	}
	csv, err := mem.ReadFile(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "I-t_a,D1,C3,"), lines[1])
}

func TestAnalyze_LogsEachFailureOnceAndSummary(t *testing.T) {
	mem := useMemoryFS(t)
	writeSampleDir(t, mem)
	logs := captureLogs(t)

	_, err := execute(t, "analyze", "/data/I-t_a.csv", "/data/I-V_a.csv", "--out", "/out", "--no-plots", "--no-html")
	require.NoError(t, err)

	var failures, leakage, afterglow int
	for _, line := range logs() {
		switch {
		case strings.Contains(line, "/data/I-V_a.csv"):
			failures++
		case strings.HasPrefix(line, "leakage: "):
			leakage++
			assert.Contains(t, line, "nA over 1 files")
		case strings.HasPrefix(line, "afterglow: "):
			afterglow++
			assert.Contains(t, line, "afterglow: 77 ± 0 ms over 1 files")
		}
	}
	assert.Equal(t, 1, failures, "failed file logged once")
	assert.Equal(t, 1, leakage)
	assert.Equal(t, 1, afterglow)
}

func TestAnalyze_SkipOutputs(t *testing.T) {
	mem := useMemoryFS(t)
	writeSampleDir(t, mem)

	out, err := execute(t, "analyze", "/data/I-t_a.csv", "--out", "/out", "--no-plots", "--no-html", "--fit")
	require.NoError(t, err)
	dir := strings.TrimSpace(out)
	assert.True(t, mem.Exists(filepath.Join(dir, "stats.csv")))
	assert.False(t, mem.Exists(filepath.Join(dir, "overlay.png")))
	assert.False(t, mem.Exists(filepath.Join(dir, "report.html")))
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", []string{"analyze"}, "requires at least 1 arg"},
		{"missing input", []string{"analyze", "/nowhere"}, "input /nowhere"},
		{"no samples", []string{"analyze", "/empty"}, "no I-t files found"},
		{"bad align", []string{"analyze", "/data", "--align", "sideways"}, "invalid align_mode"},
		{"negative threshold", []string{"analyze", "/data", "--threshold", "-1"}, "threshold_current"},
		{"wrong kind", []string{"analyze", "/data/I-V_a.csv"}, "none of 1 I-t files"},
		{"bad config path", []string{"analyze", "/data", "--config", "analysis.yaml"}, ".json extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := useMemoryFS(t)
			writeSampleDir(t, mem)
			require.NoError(t, mem.MkdirAll("/empty", 0o755))

			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIV_WritesSummary(t *testing.T) {
	mem := useMemoryFS(t)
	writeSampleDir(t, mem)

	out, err := execute(t, "iv", "/data", "--out", "/out", "--no-plots")
	require.NoError(t, err)
	dir := strings.TrimSpace(out)

	csv, err := mem.ReadFile(filepath.Join(dir, "iv_summary.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "I-V_a,D1,C3,HF,2,1000,"), lines[1])
	assert.True(t, mem.Exists(filepath.Join(dir, "iv.html")))
	assert.False(t, mem.Exists(filepath.Join(dir, "iv.png")))
}

func TestIV_Plots(t *testing.T) {
	mem := useMemoryFS(t)
	writeSampleDir(t, mem)

	out, err := execute(t, "iv", "/data/I-V_a.csv", "--out", "/out", "--log-x", "--log-y", "--no-html")
	require.NoError(t, err)
	dir := strings.TrimSpace(out)
	assert.True(t, mem.Exists(filepath.Join(dir, "iv.png")))
	assert.True(t, mem.Exists(filepath.Join(dir, "iv_slope.png")))
}

// twoTermCSV writes noise-free trap emission data with the x column in uA.
func twoTermCSV(truth []float64) []byte {
	var b strings.Builder
	b.WriteString("Total Current (uA),rho (e/cm^3)\n")
	for i := range 40 {
		xu := 0.01 * float64(i+1) * float64(i+1)
		y := fit.TwoTerm.Eval(units.ToAmps(xu, units.UA), truth)
		b.WriteString(strconv.FormatFloat(xu, 'g', -1, 64) + "," + strconv.FormatFloat(y, 'g', -1, 64) + "\n")
	}
	return []byte(b.String())
}

func TestFit_TwoTerm(t *testing.T) {
	mem := useMemoryFS(t)
	truth := []float64{1e11, 0.65, 1e10, 0.58}
	testutil.WriteFile(t, mem, "/data/rho.csv", twoTermCSV(truth))

	out, err := execute(t, "fit", "/data/rho.csv", "--guess", "1e11,0.65,1e10,0.58")
	require.NoError(t, err)
	assert.Contains(t, out, "model: two_term")
	for _, name := range []string{"N1", "E1", "N2", "E2", "RMSE", "R²"} {
		assert.Contains(t, out, name)
	}
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown model", []string{"fit", "/data/rho.csv", "--model", "cubic"}, "cubic"},
		{"bad unit", []string{"fit", "/data/rho.csv", "--x-unit", "kA"}, "invalid --x-unit"},
		{"missing column", []string{"fit", "/data/rho.csv", "--y-col", "Voltage (V)"}, "Voltage (V)"},
		{"wrong guess size", []string{"fit", "/data/rho.csv", "--guess", "1,2"}, "two_term fit"},
		{"missing file", []string{"fit", "/data/none.csv"}, "open table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := useMemoryFS(t)
			testutil.WriteFile(t, mem, "/data/rho.csv", twoTermCSV([]float64{1e11, 0.65, 1e10, 0.58}))

			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSamples(t *testing.T) {
	mem := useMemoryFS(t)
	writeSampleDir(t, mem)

	out, err := execute(t, "samples", "/data", "--kind", "I-V")
	require.NoError(t, err)
	assert.Equal(t, "/data/I-V_a.csv\n", out)

	out, err = execute(t, "samples", "/data")
	require.NoError(t, err)
	assert.Equal(t, "/data/I-t_a.csv\n", out)

	_, err = execute(t, "samples", "/data", "--kind", "cv")
	assert.ErrorContains(t, err, "invalid kind")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}
