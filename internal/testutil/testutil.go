// Package testutil provides shared test helpers and synthetic traces.
//
// The builders here generate I-t pulses with a known boundary, leakage
// drift and afterglow decay, and I-V sweeps that follow an exact power law,
// so tests can assert analysis results against values fixed in advance.
package testutil

import (
	"bytes"
	"encoding/csv"
	"math"
	"sort"
	"strconv"
	"testing"

	"github.com/banshee-data/probe.report/internal/fsutil"
	"github.com/banshee-data/probe.report/internal/trace"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta fails the test if got and want differ by more than delta.
func AssertInDelta(t testing.TB, name string, got, want, delta float64) {
	t.Helper()
	if math.Abs(got-want) > delta || math.IsNaN(got) != math.IsNaN(want) {
		t.Errorf("%s = %g, want %g ± %g", name, got, want, delta)
	}
}

// Pulse describes a synthetic I-t trace. Samples [On, Off) are above
// Baseline+Amplitude, rising linearly by Drift across the top; from Off the
// current is Baseline + Glow*exp(-(t - t[Off])/Tau).
type Pulse struct {
	N         int
	Dt        float64
	T0        float64
	On, Off   int
	Baseline  float64
	Amplitude float64
	Drift     float64
	Glow      float64
	Tau       float64
}

// DefaultPulse is a 2000-sample pulse at 1 ms spacing, on between 200 and
// 1200, reaching 10 µA over a 1 nA baseline with a 50 ms afterglow.
func DefaultPulse() Pulse {
	return Pulse{
		N:         2000,
		Dt:        1e-3,
		On:        200,
		Off:       1200,
		Baseline:  1e-9,
		Amplitude: 10e-6,
		Drift:     1e-6,
		Glow:      1e-6,
		Tau:       50e-3,
	}
}

// Time returns the time of sample i.
func (p Pulse) Time(i int) float64 { return p.T0 + float64(i)*p.Dt }

// Current returns the current of sample i.
func (p Pulse) Current(i int) float64 {
	switch {
	case i < p.On:
		return p.Baseline
	case i < p.Off:
		frac := 0.0
		if span := p.Off - p.On - 1; span > 0 {
			frac = float64(i-p.On) / float64(span)
		}
		return p.Baseline + p.Amplitude + p.Drift*frac
	default:
		if p.Tau <= 0 {
			return p.Baseline
		}
		return p.Baseline + p.Glow*math.Exp(-(p.Time(i)-p.Time(p.Off))/p.Tau)
	}
}

// Trace builds the pulse as an I-t trace.
func (p Pulse) Trace(name string) *trace.Trace {
	t := &trace.Trace{Name: name, Kind: trace.KindIT, X: make([]float64, p.N), Current: make([]float64, p.N)}
	for i := range p.N {
		t.X[i] = p.Time(i)
		t.Current[i] = p.Current(i)
	}
	return t
}

// CSV renders t as a probe-station CSV with optional metadata comments and
// Device ID / Contact ID columns (omitted when both are empty).
func CSV(t *trace.Trace, meta map[string]string, deviceID, contactID string) []byte {
	var buf bytes.Buffer
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString("# " + k + ": " + meta[k] + "\n")
	}

	w := csv.NewWriter(&buf)
	ids := deviceID != "" || contactID != ""
	header := []string{t.XColumn(), trace.ColCurrent}
	if ids {
		header = append(header, trace.ColDeviceID, trace.ColContactID)
	}
	_ = w.Write(header)
	for i := range t.X {
		row := []string{formatFloat(t.X[i]), formatFloat(t.Current[i])}
		if ids {
			row = append(row, deviceID, contactID)
		}
		_ = w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}

// PowerLawIV builds an I-V sweep with I = sign(V) * i0 * |V|^exponent.
func PowerLawIV(name string, voltages []float64, i0, exponent float64) *trace.Trace {
	t := &trace.Trace{Name: name, Kind: trace.KindIV, X: append([]float64(nil), voltages...), Current: make([]float64, len(voltages))}
	for i, v := range voltages {
		c := i0 * math.Pow(math.Abs(v), exponent)
		if v < 0 {
			c = -c
		}
		t.Current[i] = c
	}
	return t
}

// WriteFile stores data at path on fsys, failing the test on error.
func WriteFile(t testing.TB, fsys fsutil.FileSystem, path string, data []byte) {
	t.Helper()
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
