package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seen/internal/diag"
	"seen/internal/hir"
	"seen/internal/interchange"
	"seen/internal/observ"
	"seen/internal/project"
	"seen/internal/regions"
	"seen/internal/source"
)

// buildDocument assembles a document with one clean function, one function
// whose plan conflicts, and a retaining helper.
func buildDocument() *interchange.Document {
	b := hir.NewBuilder(hir.Hints{}, source.NewInterner())
	str := b.StringsInterner.Intern

	b.Funcs.New(hir.Func{Name: str("keep"), RetainsArgs: true})

	clean := b.Funcs.New(hir.Func{Name: str("clean")})
	v := b.Binds.New(hir.Bind{Name: str("v"), Fn: clean})
	b.Funcs.Get(clean).Body = b.Stmts.NewBlock(source.Span{}, []hir.StmtID{
		b.Stmts.NewLet(source.Span{}, v, b.Exprs.NewLiteral(source.Span{}, hir.ExprLitInt, str("1"))),
		b.Stmts.NewReturn(source.Span{}, b.Exprs.NewIdent(source.Span{}, v)),
	})

	leaky := b.Funcs.New(hir.Func{Name: str("leaky")})
	local := b.Binds.New(hir.Bind{Name: str("local"), Fn: leaky})
	holder := b.Binds.New(hir.Bind{Name: str("holder"), Fn: leaky})
	b.Funcs.Get(leaky).Body = b.Stmts.NewBlock(source.Span{}, []hir.StmtID{
		b.Stmts.NewLet(source.Span{}, local, b.Exprs.NewLiteral(source.Span{}, hir.ExprLitInt, str("1"))),
		b.Stmts.NewLet(source.Span{}, holder, b.Exprs.NewLiteral(source.Span{}, hir.ExprLitInt, str("2"))),
		b.Stmts.NewExpr(source.Span{}, b.Exprs.NewSpawn(source.Span{}, b.Exprs.NewIdent(source.Span{}, holder))),
		b.Stmts.NewStore(source.Span{}, holder, str("value"), b.Exprs.NewIdent(source.Span{}, local)),
	})

	return &interchange.Document{Builder: b}
}

func TestAnalyzeProgram(t *testing.T) {
	doc := buildDocument()
	results, err := AnalyzeProgram(context.Background(), doc, Options{Jobs: 4})
	if err != nil {
		t.Fatalf("AnalyzeProgram: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results: got %d, want 3", len(results))
	}

	// Results come back in function-ID order.
	names := []string{"keep", "clean", "leaky"}
	for i, want := range names {
		if results[i].Name != want {
			t.Errorf("result %d: got %q, want %q", i, results[i].Name, want)
		}
	}

	if !results[1].Plan.Satisfiable() {
		t.Error("clean function must be satisfiable")
	}
	if results[2].Plan.Satisfiable() {
		t.Error("leaky function must conflict")
	}
	if !results[2].Bag.HasErrors() {
		t.Error("leaky function must carry a conflict diagnostic")
	}
	if !HasConflicts(results) {
		t.Error("HasConflicts must see the leaky plan")
	}
}

func TestAnalyzeProgramDeterministicAcrossJobCounts(t *testing.T) {
	serial, err := AnalyzeProgram(context.Background(), buildDocument(), Options{Jobs: 1})
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	parallel, err := AnalyzeProgram(context.Background(), buildDocument(), Options{Jobs: 8})
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	for i := range serial {
		if diff := cmp.Diff(serial[i].Plan.Assignments(), parallel[i].Plan.Assignments()); diff != "" {
			t.Fatalf("fn %d assignments differ:\n%s", i+1, diff)
		}
		if diff := cmp.Diff(serial[i].Plan.Conflicts(), parallel[i].Plan.Conflicts()); diff != "" {
			t.Fatalf("fn %d conflicts differ:\n%s", i+1, diff)
		}
	}
}

func TestAnalyzeProgramMalformedInput(t *testing.T) {
	b := hir.NewBuilder(hir.Hints{}, source.NewInterner())
	str := b.StringsInterner.Intern
	other := b.Funcs.New(hir.Func{Name: str("other")})
	foreign := b.Binds.New(hir.Bind{Name: str("x"), Fn: other})
	bad := b.Funcs.New(hir.Func{Name: str("bad")})
	b.Funcs.Get(bad).Body = b.Stmts.NewBlock(source.Span{}, []hir.StmtID{
		b.Stmts.NewExpr(source.Span{}, b.Exprs.NewIdent(source.Span{}, foreign)),
	})

	results, err := AnalyzeProgram(context.Background(), &interchange.Document{Builder: b}, Options{})
	if err == nil {
		t.Fatal("want error for cross-function binding reference")
	}
	if results[1].Err == nil {
		t.Fatal("bad function must carry its error")
	}
	if results[0].Err != nil {
		t.Fatalf("other function must analyze fine, got %v", results[0].Err)
	}
}

func TestAnalyzeProgramRecordsTimings(t *testing.T) {
	timer := observ.NewTimer()
	if _, err := AnalyzeProgram(context.Background(), buildDocument(), Options{Timer: timer}); err != nil {
		t.Fatalf("AnalyzeProgram: %v", err)
	}
	report := timer.Report()
	if len(report.Phases) != 1 || report.Phases[0].Name != "analyze" {
		t.Fatalf("timer phases: %+v", report.Phases)
	}
}

func TestPlanCacheRoundTrip(t *testing.T) {
	cache, err := OpenPlanCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPlanCacheAt: %v", err)
	}
	digest := project.OfBytes([]byte("program-bytes"))

	first, err := AnalyzeProgram(context.Background(), buildDocument(), Options{Cache: cache, Digest: digest})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	for i := range first {
		if first[i].Cached {
			t.Fatalf("fn %d: first run must miss the cache", i+1)
		}
	}

	second, err := AnalyzeProgram(context.Background(), buildDocument(), Options{Cache: cache, Digest: digest})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for i := range second {
		if !second[i].Cached {
			t.Fatalf("fn %d: second run must hit the cache", i+1)
		}
		if diff := cmp.Diff(first[i].Plan.Assignments(), second[i].Plan.Assignments()); diff != "" {
			t.Fatalf("fn %d cached assignments differ:\n%s", i+1, diff)
		}
		if diff := cmp.Diff(first[i].Plan.Conflicts(), second[i].Plan.Conflicts()); diff != "" {
			t.Fatalf("fn %d cached conflicts differ:\n%s", i+1, diff)
		}
		if first[i].Bag.Len() != second[i].Bag.Len() {
			t.Fatalf("fn %d: diagnostics lost across cache, %d != %d",
				i+1, first[i].Bag.Len(), second[i].Bag.Len())
		}
	}
}

func TestPlanCacheDifferentDigestMisses(t *testing.T) {
	cache, err := OpenPlanCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPlanCacheAt: %v", err)
	}
	if _, err := AnalyzeProgram(context.Background(), buildDocument(),
		Options{Cache: cache, Digest: project.OfBytes([]byte("one"))}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	results, err := AnalyzeProgram(context.Background(), buildDocument(),
		Options{Cache: cache, Digest: project.OfBytes([]byte("two"))})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for i := range results {
		if results[i].Cached {
			t.Fatalf("fn %d: different digest must miss", i+1)
		}
	}
}

func TestPlanCacheCorruptFileIsAMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenPlanCacheAt(dir)
	if err != nil {
		t.Fatalf("OpenPlanCacheAt: %v", err)
	}
	digest := project.OfBytes([]byte("p"))
	plan := regions.RestorePlan(hir.FuncID(1), nil, nil, nil)
	if err := cache.Store(digest, hir.FuncID(1), plan, diag.NewBag(4)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("cache dir: %v entries=%d", err, len(entries))
	}
	if err := os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := cache.Load(digest, hir.FuncID(1), 4); ok {
		t.Fatal("corrupt payload must read as a miss")
	}
}

func TestPlanCacheClear(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenPlanCacheAt(dir)
	if err != nil {
		t.Fatalf("OpenPlanCacheAt: %v", err)
	}
	digest := project.OfBytes([]byte("p"))
	plan := regions.RestorePlan(hir.FuncID(1), nil, nil, nil)
	if err := cache.Store(digest, hir.FuncID(1), plan, nil); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, _, ok := cache.Load(digest, hir.FuncID(1), 4); ok {
		t.Fatal("cleared cache must miss")
	}
}
