package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/probe.report/internal/pulse"
	"github.com/banshee-data/probe.report/internal/trace"
)

func segment(x, current []float64) pulse.Segment {
	tr := &trace.Trace{Kind: trace.KindIT, X: x, Current: current}
	return pulse.Extract(tr, 0, tr.Len())
}

func unitSegment(current ...float64) pulse.Segment {
	x := make([]float64, len(current))
	for i := range x {
		x[i] = float64(i) * 0.5
	}
	return segment(x, current)
}

func TestCurrentDifference(t *testing.T) {
	seg := unitSegment(1, 2, 3, 4, 5, 6)
	l, err := CurrentDifference(seg, 2, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, l.Start, 1e-12)
	assert.InDelta(t, 5.0, l.End, 1e-12)
	assert.InDelta(t, 3.5, l.Difference, 1e-12)
}

func TestCurrentDifference_FullOverlap(t *testing.T) {
	for _, c := range [][]float64{{7}, {1, 3, 8}} {
		l, err := CurrentDifference(unitSegment(c...), len(c), len(c))
		require.NoError(t, err)
		assert.Equal(t, 0.0, l.Difference)
	}
}

func TestCurrentDifference_Insufficient(t *testing.T) {
	tests := []struct {
		name        string
		n           int
		first, last int
	}{
		{"empty segment", 0, 1, 1},
		{"shorter than first", 3, 4, 1},
		{"shorter than last", 3, 1, 4},
		{"zero window", 3, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CurrentDifference(unitSegment(make([]float64, tt.n)...), tt.first, tt.last)
			assert.True(t, errors.Is(err, ErrInsufficientData), "err = %v", err)
		})
	}
}

func TestFallingTime(t *testing.T) {
	// Decays from 100 to a baseline of 0; 98% drop means threshold 2.
	current := []float64{100, 50, 20, 5, 1.5, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	a, err := FallingTime(unitSegment(current...), 0.98)
	require.NoError(t, err)
	require.True(t, a.Found)
	assert.InDelta(t, 2.0, a.ThresholdDrop, 1e-12)
	assert.Equal(t, 2.0, a.TimeAtDrop)
	assert.Equal(t, 2.0, a.TimeDrop)
	assert.InDelta(t, 2000.0, a.TimeDropMillis(), 1e-9)
}

func TestFallingTime_OffsetSegment(t *testing.T) {
	x := []float64{1.0, 1.1, 1.2, 1.3}
	a, err := FallingTime(segment(x, []float64{10, 4, 0, 0}), 0.5)
	require.NoError(t, err)
	require.True(t, a.Found)
	assert.Equal(t, 1.1, a.TimeAtDrop)
	assert.InDelta(t, 0.1, a.TimeDrop, 1e-12)
}

func TestFallingTime_NotFound(t *testing.T) {
	// Noise that never reaches zero: a full drop is an expected miss.
	current := []float64{10, 9, 8, 7, 6, 5, 5.1, 5.2, 5.1, 5.05}
	a, err := FallingTime(unitSegment(current...), 1)
	require.NoError(t, err)
	assert.False(t, a.Found)
	assert.Equal(t, 0.0, a.TimeDrop)
}

func TestFallingTime_Errors(t *testing.T) {
	_, err := FallingTime(unitSegment(1, 2), 0)
	assert.ErrorIs(t, err, ErrInvalidPercent)
	_, err = FallingTime(unitSegment(1, 2), 1.01)
	assert.ErrorIs(t, err, ErrInvalidPercent)
	_, err = FallingTime(unitSegment(1, 2), math.NaN())
	assert.ErrorIs(t, err, ErrInvalidPercent)
	_, err = FallingTime(unitSegment(), 0.5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRecord(t *testing.T) {
	r := NewRecord("I-t_a", "D1", "C2")
	assert.True(t, math.IsNaN(r.Leakage))
	assert.True(t, math.IsNaN(r.AfterglowTime))

	r.SetLeakage(Leakage{Start: 1, End: 3, Difference: 2})
	assert.Equal(t, 2.0, r.Leakage)

	r.SetAfterglow(Afterglow{Found: false}, 0.98)
	assert.Equal(t, 0.98, r.PercentDrop)
	assert.True(t, math.IsNaN(r.AfterglowTime))
	assert.Empty(t, r.Notes)

	r.SetAfterglow(Afterglow{Found: true, TimeDrop: 0.004}, 0.98)
	assert.InDelta(t, 4.0, r.AfterglowMillis(), 1e-12)
}

func TestSummarize(t *testing.T) {
	recs := []*Record{NewRecord("a", "", ""), NewRecord("b", "", ""), NewRecord("c", "", "")}
	recs[0].Leakage = 1
	recs[1].Leakage = 3
	s := Summarize(recs, func(r *Record) float64 { return r.Leakage })
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 2.0, s.Mean)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
	assert.InDelta(t, math.Sqrt2, s.StdDev, 1e-12)

	empty := Summarize(recs, func(r *Record) float64 { return r.AfterglowTime })
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))

	one := Summarize(recs[:1], func(r *Record) float64 { return r.Leakage })
	assert.Equal(t, 0.0, one.StdDev)
}
