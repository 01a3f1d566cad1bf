package pulse

import "github.com/banshee-data/probe.report/internal/trace"

// DefaultFallingPoints bounds how much post-pulse decay is analysed.
const DefaultFallingPoints = 400

// Segment is the half-open sample range [Start, End) of a trace together
// with the sliced samples. An inverted or out-of-range request yields an
// empty segment, never a panic.
type Segment struct {
	Start int
	End   int
	Trace *trace.Trace
}

// Len returns the number of samples in the segment.
func (s Segment) Len() int { return s.End - s.Start }

// Empty reports whether the segment holds no samples.
func (s Segment) Empty() bool { return s.Len() <= 0 }

// Current returns the segment's current samples.
func (s Segment) Current() []float64 {
	if s.Trace == nil {
		return nil
	}
	return s.Trace.Current
}

// X returns the segment's independent-variable samples.
func (s Segment) X() []float64 {
	if s.Trace == nil {
		return nil
	}
	return s.Trace.X
}

// Extract returns samples [start, end) of t clamped to its bounds.
func Extract(t *trace.Trace, start, end int) Segment {
	n := t.Len()
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return Segment{Start: start, End: end, Trace: t.Slice(start, end)}
}

// TopEdge returns [start.Index+left, end.Index-right): the flat,
// high-current part of the pulse. Margins that cross yield an empty segment,
// as does a missing boundary.
func TopEdge(t *trace.Trace, start, end Boundary, leftMargin, rightMargin int) Segment {
	if !start.Found || !end.Found {
		return Extract(t, 0, 0)
	}
	return Extract(t, start.Index+leftMargin, end.Index-rightMargin)
}

// FallingEdge returns [end.Index+margin, end.Index+margin+nPoints): the
// afterglow decay following the pulse end.
func FallingEdge(t *trace.Trace, end Boundary, margin, nPoints int) Segment {
	if !end.Found || nPoints <= 0 {
		return Extract(t, 0, 0)
	}
	from := end.Index + margin
	return Extract(t, from, from+nPoints)
}
