// Package driver runs the memory passes over whole program documents:
// escape analysis then region inference per function, in parallel, with an
// optional on-disk plan cache keyed by the input digest.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"seen/internal/diag"
	"seen/internal/escape"
	"seen/internal/hir"
	"seen/internal/interchange"
	"seen/internal/observ"
	"seen/internal/project"
	"seen/internal/regions"
)

const defaultMaxDiagnostics = 100

// Options tune a driver run.
type Options struct {
	// Jobs caps parallelism; <=0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps the diagnostics kept per function.
	MaxDiagnostics int
	// Cache, when non-nil, is consulted per function under Digest.
	Cache *PlanCache
	// Digest identifies the input document for cache keying. A zero digest
	// disables cache use.
	Digest project.Digest
	// Timer, when non-nil, records the analysis phase.
	Timer *observ.Timer
}

// FunctionResult is the outcome for one function.
type FunctionResult struct {
	Fn     hir.FuncID
	Name   string
	Escape *escape.Result
	Plan   *regions.Plan
	Bag    *diag.Bag
	Cached bool
	// Err is set for malformed input (not for region conflicts, which are
	// diagnostics and show up in Bag and Plan).
	Err error
}

// AnalyzeProgram runs both memory passes over every function in doc.
// Results come back in function-ID order regardless of scheduling. The
// returned error joins per-function input errors; region conflicts alone do
// not make the run fail.
func AnalyzeProgram(ctx context.Context, doc *interchange.Document, opts Options) ([]FunctionResult, error) {
	if doc == nil || doc.Builder == nil {
		return nil, fmt.Errorf("driver: nil program document")
	}
	b := doc.Builder
	total := int(b.Funcs.Len())
	if total == 0 {
		return nil, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = defaultMaxDiagnostics
	}

	var phase int
	if opts.Timer != nil {
		phase = opts.Timer.Begin(observ.PhaseAnalyze)
	}

	results := make([]FunctionResult, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, total))

	for i := 0; i < total; i++ {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			fn := hir.FuncID(safecast.MustConvert[uint32](i + 1))
			results[i] = analyzeFunction(doc, fn, maxDiag, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cached := 0
	var errs []error
	for i := range results {
		if results[i].Cached {
			cached++
		}
		if results[i].Err != nil {
			errs = append(errs, results[i].Err)
		}
	}
	if opts.Timer != nil {
		opts.Timer.End(phase, fmt.Sprintf("%d functions, %d cached", total, cached))
	}
	return results, errors.Join(errs...)
}

func analyzeFunction(doc *interchange.Document, fn hir.FuncID, maxDiag int, opts Options) FunctionResult {
	b := doc.Builder
	res := FunctionResult{
		Fn:   fn,
		Name: b.FuncName(fn),
		Bag:  diag.NewBag(maxDiag),
	}

	useCache := opts.Cache != nil && opts.Digest != (project.Digest{})
	if useCache {
		if plan, bag, ok := opts.Cache.Load(opts.Digest, fn, maxDiag); ok {
			res.Plan = plan
			res.Bag = bag
			res.Cached = true
			return res
		}
	}

	reporter := diag.BagReporter{Bag: res.Bag}
	esc, err := escape.Analyze(b, fn, escape.Options{Reporter: reporter})
	if err != nil {
		res.Err = err
		return res
	}
	res.Escape = esc

	plan, err := regions.Infer(b, fn, doc.Env, esc, regions.Options{Reporter: reporter})
	if err != nil && !errors.Is(err, regions.ErrConflict) {
		res.Err = err
		return res
	}
	res.Plan = plan

	if useCache {
		if err := opts.Cache.Store(opts.Digest, fn, plan, res.Bag); err != nil {
			diag.ReportWarning(reporter, diag.IOPlanCacheBroken, b.Funcs.Get(fn).Span,
				fmt.Sprintf("cannot write plan cache: %v", err)).Emit()
		}
	}
	return res
}

// HasConflicts reports whether any function's plan is unsatisfiable.
func HasConflicts(results []FunctionResult) bool {
	for i := range results {
		if results[i].Plan != nil && !results[i].Plan.Satisfiable() {
			return true
		}
	}
	return false
}
