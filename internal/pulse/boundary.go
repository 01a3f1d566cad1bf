// Package pulse locates pulse boundaries on an I-t trace by threshold
// crossing and slices the top-edge and falling-edge segments around them.
package pulse

import (
	"fmt"

	"github.com/banshee-data/probe.report/internal/trace"
)

// Boundary marks a pulse start or end. A zero Boundary (Found == false)
// means no crossing was detected; Index and X carry no meaning then.
type Boundary struct {
	Index int
	X     float64
	Found bool
	// PastWindow is set on an end boundary when the current never dropped
	// back below threshold, so the pulse presumably continues past the
	// recorded window and Index is the last sample.
	PastWindow bool
}

// NotFound is the boundary returned when no crossing exists.
var NotFound = Boundary{}

func (b Boundary) String() string {
	if !b.Found {
		return "not found"
	}
	s := fmt.Sprintf("index %d at %g", b.Index, b.X)
	if b.PastWindow {
		s += " (past window)"
	}
	return s
}

// FindStart returns the pulse start: the first sample whose current strictly
// exceeds threshold. The boundary X is the time of the sample immediately
// before it, the last baseline sample. When the very first sample is already
// above threshold there is no baseline, and the boundary is index 0, X 0.
func FindStart(t *trace.Trace, threshold float64) Boundary {
	for i, c := range t.Current {
		if c > threshold {
			if i == 0 {
				return Boundary{Index: 0, X: 0, Found: true}
			}
			return Boundary{Index: i, X: t.X[i-1], Found: true}
		}
	}
	return NotFound
}

// FindEnd returns the pulse end: the last sample at or after startIndex that
// is still above threshold before the first sample that drops below it. If
// the current never drops below threshold the end is the final sample with
// PastWindow set. The returned Index is never less than startIndex; if the
// sample at startIndex is itself below threshold there is no pulse to end.
func FindEnd(t *trace.Trace, threshold float64, startIndex int) Boundary {
	n := t.Len()
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= n {
		return NotFound
	}
	for i := startIndex; i < n; i++ {
		if t.Current[i] < threshold {
			if i == startIndex {
				return NotFound
			}
			return Boundary{Index: i - 1, X: t.X[i-1], Found: true}
		}
	}
	return Boundary{Index: n - 1, X: t.X[n-1], Found: true, PastWindow: true}
}

// Detect runs FindStart then FindEnd from the start index. The end is only
// searched when a start was found.
func Detect(t *trace.Trace, threshold float64) (start, end Boundary) {
	start = FindStart(t, threshold)
	if !start.Found {
		return start, NotFound
	}
	return start, FindEnd(t, threshold, start.Index)
}
