package pulse

import (
	"math/rand/v2"
	"testing"

	"github.com/banshee-data/probe.report/internal/trace"
)

// unitTrace builds an I-t trace with x[i] = i.
func unitTrace(current ...float64) *trace.Trace {
	x := make([]float64, len(current))
	for i := range x {
		x[i] = float64(i)
	}
	return &trace.Trace{Name: "unit", Kind: trace.KindIT, X: x, Current: current}
}

func TestDetect_SquarePulse(t *testing.T) {
	tr := unitTrace(0, 0, 0, 0, 1e-6, 2e-6, 2e-6, 2e-6, 0, 0)
	start, end := Detect(tr, 5e-7)

	if want := (Boundary{Index: 4, X: 3, Found: true}); start != want {
		t.Errorf("start = %+v, want %+v", start, want)
	}
	if want := (Boundary{Index: 7, X: 7, Found: true}); end != want {
		t.Errorf("end = %+v, want %+v", end, want)
	}
}

func TestFindStart(t *testing.T) {
	tests := []struct {
		name    string
		current []float64
		want    Boundary
	}{
		{"never crosses", []float64{0, 1, 2, 1}, NotFound},
		{"equal is not above", []float64{0, 5, 5, 0}, NotFound},
		{"active at first sample", []float64{6, 6, 0}, Boundary{Index: 0, X: 0, Found: true}},
		{"second sample", []float64{0, 6, 0}, Boundary{Index: 1, X: 0, Found: true}},
		{"empty", nil, NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindStart(unitTrace(tt.current...), 5)
			if got != tt.want {
				t.Errorf("FindStart = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFindEnd(t *testing.T) {
	tests := []struct {
		name    string
		current []float64
		start   int
		want    Boundary
	}{
		{"drops", []float64{0, 6, 6, 0}, 1, Boundary{Index: 2, X: 2, Found: true}},
		{"never drops", []float64{0, 6, 6, 6}, 1, Boundary{Index: 3, X: 3, Found: true, PastWindow: true}},
		{"equal is not below", []float64{0, 6, 5, 4}, 1, Boundary{Index: 2, X: 2, Found: true}},
		{"below at start", []float64{0, 0, 6}, 1, NotFound},
		{"start out of range", []float64{6, 6}, 5, NotFound},
		{"negative start", []float64{6, 0}, -3, Boundary{Index: 0, X: 0, Found: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindEnd(unitTrace(tt.current...), 5, tt.start)
			if got != tt.want {
				t.Errorf("FindEnd = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBoundaryProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	const threshold = 0.5
	for iter := 0; iter < 500; iter++ {
		n := 1 + r.IntN(40)
		c := make([]float64, n)
		for i := range c {
			c[i] = r.Float64()
		}
		tr := unitTrace(c...)

		start := FindStart(tr, threshold)
		if !start.Found {
			for i, v := range c {
				if v > threshold {
					t.Fatalf("iter %d: sample %d = %g above threshold but start not found", iter, i, v)
				}
			}
			if start.Index != 0 || start.X != 0 {
				t.Fatalf("iter %d: not-found start = %+v", iter, start)
			}
			continue
		}
		if c[start.Index] <= threshold {
			t.Fatalf("iter %d: current[%d] = %g not above threshold", iter, start.Index, c[start.Index])
		}
		if start.Index > 0 && c[start.Index-1] > threshold {
			t.Fatalf("iter %d: current[%d] = %g already above threshold", iter, start.Index-1, c[start.Index-1])
		}

		for from := 0; from < n; from++ {
			end := FindEnd(tr, threshold, from)
			if end.Found && end.Index < from {
				t.Fatalf("iter %d: FindEnd(from=%d) = %d", iter, from, end.Index)
			}
		}
	}
}

func TestBoundaryString(t *testing.T) {
	if got := NotFound.String(); got != "not found" {
		t.Errorf("got %q", got)
	}
	b := Boundary{Index: 3, X: 0.5, Found: true, PastWindow: true}
	if got, want := b.String(), "index 3 at 0.5 (past window)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTopEdge(t *testing.T) {
	tr := unitTrace(0, 0, 6, 6, 6, 6, 6, 6, 0, 0)
	start, end := Detect(tr, 5)

	tests := []struct {
		name        string
		left, right int
		wantStart   int
		wantLen     int
	}{
		{"no margins", 0, 0, 2, 5},
		{"margins", 1, 2, 3, 2},
		{"margins cross", 4, 4, 6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := TopEdge(tr, start, end, tt.left, tt.right)
			if seg.Len() != tt.wantLen {
				t.Fatalf("Len = %d, want %d", seg.Len(), tt.wantLen)
			}
			if seg.Trace.Len() != tt.wantLen {
				t.Fatalf("Trace.Len = %d, want %d", seg.Trace.Len(), tt.wantLen)
			}
			if tt.wantLen > 0 && seg.Start != tt.wantStart {
				t.Errorf("Start = %d, want %d", seg.Start, tt.wantStart)
			}
			if tt.wantLen == 0 && !seg.Empty() {
				t.Error("expected empty segment")
			}
		})
	}

	if seg := TopEdge(tr, NotFound, end, 0, 0); !seg.Empty() {
		t.Errorf("missing start: got %d samples", seg.Len())
	}
}

func TestFallingEdge(t *testing.T) {
	tr := unitTrace(0, 6, 6, 4, 3, 2, 1, 0)
	end := FindEnd(tr, 5, 1)

	seg := FallingEdge(tr, end, 1, 3)
	if seg.Start != 3 || seg.End != 6 {
		t.Fatalf("range = [%d,%d), want [3,6)", seg.Start, seg.End)
	}
	if got := seg.Current(); len(got) != 3 || got[0] != 4 || got[2] != 2 {
		t.Errorf("Current = %v", got)
	}

	// Window runs off the end of the trace.
	seg = FallingEdge(tr, end, 0, DefaultFallingPoints)
	if seg.End != tr.Len() {
		t.Errorf("End = %d, want %d", seg.End, tr.Len())
	}

	if seg := FallingEdge(tr, NotFound, 0, 10); !seg.Empty() {
		t.Error("expected empty segment for missing end")
	}
	if seg := FallingEdge(tr, end, 0, 0); !seg.Empty() {
		t.Error("expected empty segment for zero points")
	}
}

func TestExtract_Clamps(t *testing.T) {
	tr := unitTrace(1, 2, 3)
	tests := []struct {
		start, end         int
		wantStart, wantEnd int
	}{
		{-2, 2, 0, 2},
		{1, 10, 1, 3},
		{2, 1, 2, 2},
		{5, 9, 3, 3},
	}
	for _, tt := range tests {
		seg := Extract(tr, tt.start, tt.end)
		if seg.Start != tt.wantStart || seg.End != tt.wantEnd {
			t.Errorf("Extract(%d,%d) = [%d,%d), want [%d,%d)", tt.start, tt.end, seg.Start, seg.End, tt.wantStart, tt.wantEnd)
		}
		if seg.Trace.Len() != seg.Len() {
			t.Errorf("Extract(%d,%d) trace len %d != %d", tt.start, tt.end, seg.Trace.Len(), seg.Len())
		}
	}
}
