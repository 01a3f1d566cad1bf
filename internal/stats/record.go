package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/probe.report/internal/units"
)

// Record is one row of the exported statistics table. Unset values are NaN
// so that a file whose falling edge could not be analysed still exports its
// leakage figures.
type Record struct {
	FileName        string
	DeviceID        string
	ContactID       string
	Label           string
	PhotocurrentMin float64 // leakage start
	PhotocurrentMax float64 // leakage end
	Leakage         float64
	PercentDrop     float64
	AfterglowTime   float64 // seconds
	Notes           []string
}

// NewRecord returns a record with every numeric field NaN.
func NewRecord(fileName, deviceID, contactID string) *Record {
	nan := math.NaN()
	return &Record{
		FileName:        fileName,
		DeviceID:        deviceID,
		ContactID:       contactID,
		PhotocurrentMin: nan,
		PhotocurrentMax: nan,
		Leakage:         nan,
		PercentDrop:     nan,
		AfterglowTime:   nan,
	}
}

// SetLeakage copies l into the record.
func (r *Record) SetLeakage(l Leakage) {
	r.PhotocurrentMin = l.Start
	r.PhotocurrentMax = l.End
	r.Leakage = l.Difference
}

// SetAfterglow copies a into the record. A not-found afterglow leaves the
// time NaN; reporting it is the caller's concern.
func (r *Record) SetAfterglow(a Afterglow, percentDrop float64) {
	r.PercentDrop = percentDrop
	if a.Found {
		r.AfterglowTime = a.TimeDrop
	}
}

// AfterglowMillis returns the afterglow time in milliseconds.
func (r *Record) AfterglowMillis() float64 {
	return units.FromSeconds(r.AfterglowTime, units.MS)
}

// Note appends a free-form diagnostic to the record.
func (r *Record) Note(msg string) { r.Notes = append(r.Notes, msg) }

// Summary aggregates one column across records, skipping NaNs.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize returns the summary of field(r) over records. A summary of no
// finite values has Count 0 and NaN statistics.
func Summarize(records []*Record, field func(*Record) float64) Summary {
	vals := make([]float64, 0, len(records))
	for _, r := range records {
		if v := field(r); !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, StdDev: nan, Min: nan, Max: nan}
	}
	s := Summary{Count: len(vals), Min: floats.Min(vals), Max: floats.Max(vals)}
	s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		s.StdDev = 0
	}
	return s
}
