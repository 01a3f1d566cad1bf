package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/probe.report/internal/fsutil"
	"github.com/banshee-data/probe.report/internal/monitoring"
	"github.com/banshee-data/probe.report/internal/stats"
	"github.com/banshee-data/probe.report/internal/timeutil"
	"github.com/banshee-data/probe.report/internal/trace"
)

// Batch analyses many files concurrently. Files share no state, so the only
// coordination is the worker limit.
type Batch struct {
	FS      fsutil.FileSystem
	Workers int // 0 means runtime.GOMAXPROCS(0)
	Clock   timeutil.Clock
	RunID   string
}

// NewBatch returns a batch over fsys with a fresh run ID.
func NewBatch(fsys fsutil.FileSystem, workers int) *Batch {
	return &Batch{
		FS:      fsys,
		Workers: workers,
		Clock:   timeutil.RealClock{},
		RunID:   uuid.NewString(),
	}
}

// FileError records a file that could not be analysed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// Run describes one batch invocation.
type Run struct {
	ID       string
	Started  time.Time
	Elapsed  time.Duration
	Failures []FileError
}

// ITRun is the outcome of RunIT. Results are in input order with failed
// files omitted.
type ITRun struct {
	Run
	Results []*ITResult
}

// Records returns the statistics records of every analysed file.
func (r *ITRun) Records() []*stats.Record {
	out := make([]*stats.Record, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Record
	}
	return out
}

// IVRun is the outcome of RunIV.
type IVRun struct {
	Run
	Results []*IVResult
}

// Summaries returns the I-V summary rows of every analysed file.
func (r *IVRun) Summaries() []IVSummary {
	out := make([]IVSummary, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Summary
	}
	return out
}

// RunIT loads and analyses every path as an I-t trace.
func (b *Batch) RunIT(ctx context.Context, paths []string, p ITParams) *ITRun {
	results, run := runEach(ctx, b, paths, trace.KindIT, func(t *trace.Trace) *ITResult {
		return AnalyzeIT(t, p)
	})
	return &ITRun{Run: run, Results: results}
}

// RunIV loads and analyses every path as an I-V sweep.
func (b *Batch) RunIV(ctx context.Context, paths []string, p IVParams) *IVRun {
	results, run := runEach(ctx, b, paths, trace.KindIV, func(t *trace.Trace) *IVResult {
		return AnalyzeIV(t, p)
	})
	return &IVRun{Run: run, Results: results}
}

// OutputDir returns base/<timestamp>_<run id prefix> for this batch.
func (b *Batch) OutputDir(base string, started time.Time) string {
	id := b.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join(base, timeutil.FormatStamp(started)+"_"+id)
}

// runEach applies analyze to every path that loads as kind. A load error
// or cancellation is recorded against its file and never stops the others.
func runEach[R any](ctx context.Context, b *Batch, paths []string, kind trace.Kind, analyze func(*trace.Trace) R) ([]R, Run) {
	clock := b.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	run := Run{ID: b.RunID, Started: clock.Now()}

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]R, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			t, err := trace.Load(b.FS, path)
			if err != nil {
				errs[i] = err
				return nil
			}
			if t.Kind != kind {
				errs[i] = fmt.Errorf("expected an %s trace, got %s", kind, t.Kind)
				return nil
			}
			results[i] = analyze(t)
			return nil
		})
	}
	_ = g.Wait()

	kept := results[:0]
	for i, err := range errs {
		if err != nil {
			fe := FileError{Path: paths[i], Err: err}
			run.Failures = append(run.Failures, fe)
			monitoring.Warnf("skipping %v", fe)
			continue
		}
		kept = append(kept, results[i])
	}
	run.Elapsed = clock.Since(run.Started)
	monitoring.Debugf("run %s: %d files, %d failed, %v", run.ID, len(paths), len(run.Failures), run.Elapsed)
	return kept, run
}
