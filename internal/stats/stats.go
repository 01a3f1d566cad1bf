// Package stats computes the scalar statistics of a pulse: leakage current
// across the top edge and afterglow decay time across the falling edge.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/probe.report/internal/pulse"
	"github.com/banshee-data/probe.report/internal/units"
)

var (
	// ErrInsufficientData is returned when a segment is shorter than the
	// averaging window requested of it.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidPercent is returned for a percent drop outside (0, 1].
	ErrInvalidPercent = errors.New("percent drop must be in (0, 1]")
)

// BaselineWindow is the number of trailing samples averaged to estimate
// where a falling edge settles.
const BaselineWindow = 10

// Leakage is the drift of the photocurrent across the top edge.
type Leakage struct {
	Start      float64 // mean of the first window
	End        float64 // mean of the last window
	Difference float64 // End - Start
}

// CurrentDifference averages the first firstN and last lastN currents of
// seg. The windows may overlap; a segment shorter than either window fails
// with ErrInsufficientData rather than averaging fewer points.
func CurrentDifference(seg pulse.Segment, firstN, lastN int) (Leakage, error) {
	c := seg.Current()
	n := len(c)
	if firstN < 1 || lastN < 1 {
		return Leakage{}, fmt.Errorf("%w: window sizes %d/%d", ErrInsufficientData, firstN, lastN)
	}
	if n < max(firstN, lastN) {
		return Leakage{}, fmt.Errorf("%w: segment has %d samples, need %d", ErrInsufficientData, n, max(firstN, lastN))
	}
	l := Leakage{
		Start: stat.Mean(c[:firstN], nil),
		End:   stat.Mean(c[n-lastN:], nil),
	}
	l.Difference = l.End - l.Start
	return l, nil
}

// Afterglow describes how long the falling edge takes to decay by a given
// fraction. Found is false when the current never reaches ThresholdDrop;
// TimeAtDrop and TimeDrop are zero then.
type Afterglow struct {
	ThresholdDrop float64
	TimeAtDrop    float64
	TimeDrop      float64
	Baseline      float64
	Found         bool
}

// TimeDropMillis returns TimeDrop in milliseconds.
func (a Afterglow) TimeDropMillis() float64 { return units.FromSeconds(a.TimeDrop, units.MS) }

// FallingTime finds when the falling edge has dropped by percentDrop of its
// initial amplitude. The amplitude is |current[0] - baseline| where baseline
// is the mean of the last BaselineWindow samples (fewer if the segment is
// shorter), and the crossing is the first sample with current <= amplitude *
// (1 - percentDrop).
func FallingTime(seg pulse.Segment, percentDrop float64) (Afterglow, error) {
	if !(percentDrop > 0 && percentDrop <= 1) {
		return Afterglow{}, fmt.Errorf("%w: got %g", ErrInvalidPercent, percentDrop)
	}
	c, x := seg.Current(), seg.X()
	if len(c) == 0 {
		return Afterglow{}, fmt.Errorf("%w: empty falling edge", ErrInsufficientData)
	}

	w := min(BaselineWindow, len(c))
	a := Afterglow{Baseline: stat.Mean(c[len(c)-w:], nil)}
	initial := math.Abs(c[0] - a.Baseline)
	a.ThresholdDrop = initial * (1 - percentDrop)

	for j, v := range c {
		if v <= a.ThresholdDrop {
			a.TimeAtDrop = x[j]
			a.TimeDrop = x[j] - x[0]
			a.Found = true
			break
		}
	}
	return a, nil
}
