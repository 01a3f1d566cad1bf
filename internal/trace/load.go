package trace

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/probe.report/internal/fsutil"
)

// Parse reads a trace from r. The header must contain "Current (A)" and
// either "Time (s)" (I-t) or "Voltage (V)" (I-V). Missing columns, empty
// files, malformed numbers and unordered samples are hard failures.
func Parse(r io.Reader, name string) (*Trace, error) {
	tbl, err := ParseTable(r)
	if err != nil {
		return nil, err
	}
	return FromTable(tbl, name)
}

// FromTable builds a Trace from an already parsed table.
func FromTable(tbl *Table, name string) (*Trace, error) {
	var kind Kind
	switch {
	case tbl.Has(ColTime):
		kind = KindIT
	case tbl.Has(ColVoltage):
		kind = KindIV
	default:
		return nil, fmt.Errorf("%w: need %q or %q", ErrMissingColumn, ColTime, ColVoltage)
	}
	if !tbl.Has(ColCurrent) {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, ColCurrent)
	}
	if len(tbl.Rows) == 0 {
		return nil, ErrEmpty
	}

	t := &Trace{Name: name, Kind: kind, Metadata: tbl.Metadata}
	var err error
	if t.X, err = tbl.Floats(t.XColumn()); err != nil {
		return nil, err
	}
	if t.Current, err = tbl.Floats(ColCurrent); err != nil {
		return nil, err
	}
	for i := 1; i < len(t.X); i++ {
		if t.X[i] < t.X[i-1] {
			return nil, fmt.Errorf("%w: %s decreases at row %d (%g < %g)", ErrUnordered, t.XColumn(), i+2, t.X[i], t.X[i-1])
		}
	}
	t.DeviceID, _ = tbl.First(ColDeviceID)
	t.ContactID, _ = tbl.First(ColContactID)
	return t, nil
}

// Load opens path on fsys and parses it. The trace is named after the file
// with its extension removed.
func Load(fsys fsutil.FileSystem, path string) (*Trace, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	t, err := Parse(f, FileName(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadTable opens path on fsys and returns its raw table.
func LoadTable(fsys fsutil.FileSystem, path string) (*Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	tbl, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// FileName returns the base name of path without its extension.
func FileName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListSamples returns the sample-library CSV files in dir whose names start
// with the measurement type of kind ("I-t" or "I-V"), sorted by name.
func ListSamples(fsys fsutil.FileSystem, dir string, kind Kind) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	prefix := kind.String()
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") || !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}
