// Package trace holds the measurement trace model: an ordered series of
// (time or voltage, current) samples read from a probe-station CSV file,
// plus the key/value metadata found in its comment lines.
//
// A Trace is immutable once loaded. Every derived view (aligned, windowed,
// filtered) is returned as a new Trace; the original slices are never written.
package trace

import (
	"fmt"
	"math"
)

// Kind identifies the independent variable of a trace.
type Kind int

const (
	// KindIT is a current-vs-time trace.
	KindIT Kind = iota
	// KindIV is a current-vs-voltage trace.
	KindIV
)

// String returns the measurement-type label used in sample file names.
func (k Kind) String() string {
	switch k {
	case KindIT:
		return "I-t"
	case KindIV:
		return "I-V"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column names recognised in trace CSV headers.
const (
	ColTime      = "Time (s)"
	ColVoltage   = "Voltage (V)"
	ColCurrent   = "Current (A)"
	ColDeviceID  = "Device ID"
	ColContactID = "Contact ID"
)

// Trace is an ordered sequence of samples. X holds time (s) for I-t traces
// and voltage (V) for I-V traces; Current holds amperes. X is non-decreasing.
type Trace struct {
	Name      string
	Kind      Kind
	X         []float64
	Current   []float64
	DeviceID  string
	ContactID string
	Metadata  Metadata
}

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.X) }

// XColumn returns the header name of the independent variable.
func (t *Trace) XColumn() string {
	if t.Kind == KindIV {
		return ColVoltage
	}
	return ColTime
}

// Label returns the metadata-derived display label, falling back to Name.
func (t *Trace) Label() string {
	return t.Metadata.Label(t.Name)
}

// derive returns a copy of t's identity fields with new sample slices.
func (t *Trace) derive(x, current []float64) *Trace {
	return &Trace{
		Name:      t.Name,
		Kind:      t.Kind,
		X:         x,
		Current:   current,
		DeviceID:  t.DeviceID,
		ContactID: t.ContactID,
		Metadata:  t.Metadata,
	}
}

// Slice returns samples [start, end) clamped to the trace bounds. The result
// shares storage with t and is capped so appends cannot write into t.
func (t *Trace) Slice(start, end int) *Trace {
	start, end = clampRange(start, end, t.Len())
	return t.derive(t.X[start:end:end], t.Current[start:end:end])
}

// Shift returns a trace whose X values are x - offset. Used to align
// time axes on a pulse boundary.
func (t *Trace) Shift(offset float64) *Trace {
	x := make([]float64, len(t.X))
	for i, v := range t.X {
		x[i] = v - offset
	}
	return t.derive(x, t.Current)
}

// Window returns the samples whose X lies within [min, max].
func (t *Trace) Window(min, max float64) *Trace {
	return t.Filter(func(x, _ float64) bool { return x >= min && x <= max })
}

// Filter returns the samples for which keep returns true.
func (t *Trace) Filter(keep func(x, current float64) bool) *Trace {
	x := make([]float64, 0, len(t.X))
	c := make([]float64, 0, len(t.Current))
	for i := range t.X {
		if keep(t.X[i], t.Current[i]) {
			x = append(x, t.X[i])
			c = append(c, t.Current[i])
		}
	}
	return t.derive(x, c)
}

// AbsCurrent returns a trace with |current|.
func (t *Trace) AbsCurrent() *Trace {
	c := make([]float64, len(t.Current))
	for i, v := range t.Current {
		c[i] = math.Abs(v)
	}
	return t.derive(t.X, c)
}

// AbsX returns a trace with |x|, used for the negative branch of an I-V sweep.
// The result is only ordered if every X had the same sign.
func (t *Trace) AbsX() *Trace {
	x := make([]float64, len(t.X))
	for i, v := range t.X {
		x[i] = math.Abs(v)
	}
	return t.derive(x, t.Current)
}

// clampRange bounds [start, end) to [0, n] and collapses inverted ranges.
func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	return start, end
}
