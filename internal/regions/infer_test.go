package regions

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seen/internal/diag"
	"seen/internal/escape"
	"seen/internal/hir"
	"seen/internal/source"
	"seen/internal/types"
)

func newTestBuilder() *hir.Builder {
	return hir.NewBuilder(hir.Hints{}, source.NewInterner())
}

func intern(b *hir.Builder, s string) source.StringID {
	return b.StringsInterner.Intern(s)
}

func addFunction(b *hir.Builder, name string, retains bool) hir.FuncID {
	return b.Funcs.New(hir.Func{Name: intern(b, name), RetainsArgs: retains})
}

func addLocal(b *hir.Builder, fn hir.FuncID, name string) hir.BindID {
	return b.Binds.New(hir.Bind{Name: intern(b, name), Fn: fn})
}

func setBody(b *hir.Builder, fn hir.FuncID, stmts ...hir.StmtID) {
	b.Funcs.Get(fn).Body = b.Stmts.NewBlock(source.Span{}, stmts)
}

func ident(b *hir.Builder, bind hir.BindID) hir.ExprID {
	return b.Exprs.NewIdent(source.Span{}, bind)
}

func intLit(b *hir.Builder, text string) hir.ExprID {
	return b.Exprs.NewLiteral(source.Span{}, hir.ExprLitInt, intern(b, text))
}

func runInfer(t *testing.T, b *hir.Builder, fn hir.FuncID, env *types.Env) (*Plan, *diag.Bag, error) {
	t.Helper()
	esc, err := escape.Analyze(b, fn, escape.Options{})
	if err != nil {
		t.Fatalf("escape.Analyze: %v", err)
	}
	bag := diag.NewBag(32)
	plan, err := Infer(b, fn, env, esc, Options{Reporter: diag.BagReporter{Bag: bag}})
	return plan, bag, err
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestInferPlacementPerEscapeKind(t *testing.T) {
	b := newTestBuilder()
	keep := addFunction(b, "keep", true)
	fn := addFunction(b, "all", false)
	local := addLocal(b, fn, "local")
	ret := addLocal(b, fn, "ret")
	glob := addLocal(b, fn, "glob")
	shared := addLocal(b, fn, "shared")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, local, intLit(b, "1")),
		b.Stmts.NewLet(source.Span{}, ret, intLit(b, "2")),
		b.Stmts.NewLet(source.Span{}, glob, intLit(b, "3")),
		b.Stmts.NewLet(source.Span{}, shared, intLit(b, "4")),
		b.Stmts.NewExpr(source.Span{}, ident(b, local)),
		b.Stmts.NewExpr(source.Span{}, b.Exprs.NewCall(source.Span{}, keep, []hir.ExprID{ident(b, glob)})),
		b.Stmts.NewExpr(source.Span{}, b.Exprs.NewSpawn(source.Span{}, ident(b, shared))),
		b.Stmts.NewReturn(source.Span{}, ident(b, ret)),
	)

	plan, _, err := runInfer(t, b, fn, nil)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	want := map[hir.BindID]Kind{local: Stack, ret: ReturnBound, glob: Heap, shared: Shared}
	for bind, kind := range want {
		if got := plan.KindOf(bind); got != kind {
			t.Errorf("%s: got %v, want %v", b.BindName(bind), got, kind)
		}
	}
	counts := plan.CountByKind()
	for _, k := range []Kind{Stack, Heap, ReturnBound, Shared} {
		if counts[k] != 1 {
			t.Errorf("count[%v]: got %d, want 1", k, counts[k])
		}
	}
}

func TestInferUnsizedTypePromotedToHeap(t *testing.T) {
	b := newTestBuilder()
	fn := addFunction(b, "grow", false)
	buf := addLocal(b, fn, "buf")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, buf, intLit(b, "0")),
		b.Stmts.NewExpr(source.Span{}, ident(b, buf)),
	)

	env := types.NewEnv(nil)
	env.SetType(buf, env.Interner().NewUnsized(intern(b, "Buffer")))

	plan, bag, err := runInfer(t, b, fn, env)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	a, ok := plan.Assignment(buf)
	if !ok {
		t.Fatal("buf has no assignment")
	}
	if a.Kind != Heap || !a.Promoted {
		t.Fatalf("buf: got kind=%v promoted=%v, want Heap promoted", a.Kind, a.Promoted)
	}
	if !hasCode(bag, diag.RegionHeapPromotion) {
		t.Fatal("want RegionHeapPromotion advisory")
	}
}

func TestInferStackIntoHeapSucceeds(t *testing.T) {
	b := newTestBuilder()
	keep := addFunction(b, "keep", true)
	fn := addFunction(b, "promote", false)
	v := addLocal(b, fn, "v")
	box := addLocal(b, fn, "box")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, v, intLit(b, "1")),
		b.Stmts.NewLet(source.Span{}, box, intLit(b, "0")),
		b.Stmts.NewStore(source.Span{}, box, intern(b, "value"), ident(b, v)),
		b.Stmts.NewExpr(source.Span{}, b.Exprs.NewCall(source.Span{}, keep, []hir.ExprID{ident(b, box)})),
	)

	plan, bag, err := runInfer(t, b, fn, nil)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if plan.KindOf(v) != Stack || plan.KindOf(box) != Heap {
		t.Fatalf("placements: v=%v box=%v", plan.KindOf(v), plan.KindOf(box))
	}
	if len(plan.Edges()) != 1 {
		t.Fatalf("edges: got %d, want 1", len(plan.Edges()))
	}
	if !plan.Satisfiable() {
		t.Fatal("stack-into-heap store must be satisfiable")
	}
	if hasCode(bag, diag.RegionConflict) {
		t.Fatal("no conflict expected")
	}
}

func TestInferCopyThenReturnSatisfiable(t *testing.T) {
	// `let y = x; return y` is valid: the copy drags x into the
	// return-bound region alongside y, so no conflict may be reported.
	b := newTestBuilder()
	fn := addFunction(b, "alias", false)
	x := addLocal(b, fn, "x")
	y := addLocal(b, fn, "y")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, x, intLit(b, "1")),
		b.Stmts.NewLet(source.Span{}, y, ident(b, x)),
		b.Stmts.NewReturn(source.Span{}, ident(b, y)),
	)

	plan, bag, err := runInfer(t, b, fn, nil)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !plan.Satisfiable() {
		t.Fatalf("plan must be satisfiable, conflicts: %+v", plan.Conflicts())
	}
	if plan.KindOf(x) != ReturnBound || plan.KindOf(y) != ReturnBound {
		t.Fatalf("placements: x=%v y=%v, want both %v", plan.KindOf(x), plan.KindOf(y), ReturnBound)
	}
	if hasCode(bag, diag.RegionConflict) {
		t.Fatal("no conflict expected")
	}
}

func TestInferStackIntoSharedConflicts(t *testing.T) {
	b := newTestBuilder()
	fn := addFunction(b, "leak", false)
	v := addLocal(b, fn, "v")
	holder := addLocal(b, fn, "holder")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, v, intLit(b, "1")),
		b.Stmts.NewLet(source.Span{}, holder, intLit(b, "0")),
		b.Stmts.NewExpr(source.Span{}, b.Exprs.NewSpawn(source.Span{}, ident(b, holder))),
		b.Stmts.NewStore(source.Span{}, holder, intern(b, "value"), ident(b, v)),
	)

	plan, bag, err := runInfer(t, b, fn, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if plan.Satisfiable() {
		t.Fatal("plan must not be satisfiable")
	}
	if len(plan.Conflicts()) != 1 {
		t.Fatalf("conflicts: got %d, want 1", len(plan.Conflicts()))
	}
	c := plan.Conflicts()[0]
	if c.From != v || c.To != holder || c.FromKind != Stack || c.ToKind != Shared {
		t.Fatalf("conflict edge: %+v", c)
	}
	if !hasCode(bag, diag.RegionConflict) {
		t.Fatal("want RegionConflict diagnostic")
	}
}

func TestInferStackIntoReturnBoundConflicts(t *testing.T) {
	b := newTestBuilder()
	fn := addFunction(b, "escapeLocal", false)
	v := addLocal(b, fn, "v")
	out := addLocal(b, fn, "out")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, v, intLit(b, "1")),
		b.Stmts.NewLet(source.Span{}, out, intLit(b, "0")),
		b.Stmts.NewStore(source.Span{}, out, intern(b, "value"), ident(b, v)),
		b.Stmts.NewReturn(source.Span{}, ident(b, out)),
	)

	plan, _, err := runInfer(t, b, fn, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if got := plan.KindOf(out); got != ReturnBound {
		t.Fatalf("out: got %v, want %v", got, ReturnBound)
	}
}

func TestInferCopyShapedValuesCreateNoEdges(t *testing.T) {
	b := newTestBuilder()
	fn := addFunction(b, "copies", false)
	v := addLocal(b, fn, "v")
	out := addLocal(b, fn, "out")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, v, intLit(b, "1")),
		b.Stmts.NewLet(source.Span{}, out, intLit(b, "0")),
		b.Stmts.NewStore(source.Span{}, out, intern(b, "value"), ident(b, v)),
		b.Stmts.NewReturn(source.Span{}, ident(b, out)),
	)

	env := types.NewEnv(nil)
	env.SetType(v, env.Interner().Int())
	env.SetType(out, env.Interner().NewStruct(intern(b, "Box"), nil))

	plan, _, err := runInfer(t, b, fn, env)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(plan.Edges()) != 0 {
		t.Fatalf("edges: got %d, want 0 (int stores copy)", len(plan.Edges()))
	}
}

func TestInferCrossKindCycleConflicts(t *testing.T) {
	b := newTestBuilder()
	keep := addFunction(b, "keep", true)
	fn := addFunction(b, "tangle", false)
	a := addLocal(b, fn, "a")
	c := addLocal(b, fn, "c")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, a, intLit(b, "1")),
		b.Stmts.NewLet(source.Span{}, c, intLit(b, "2")),
		b.Stmts.NewExpr(source.Span{}, b.Exprs.NewCall(source.Span{}, keep, []hir.ExprID{ident(b, c)})),
		b.Stmts.NewStore(source.Span{}, a, intern(b, "next"), ident(b, c)),
		b.Stmts.NewStore(source.Span{}, c, intern(b, "prev"), ident(b, a)),
		b.Stmts.NewReturn(source.Span{}, ident(b, a)),
	)

	plan, bag, err := runInfer(t, b, fn, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if plan.KindOf(a) != ReturnBound || plan.KindOf(c) != Heap {
		t.Fatalf("placements: a=%v c=%v", plan.KindOf(a), plan.KindOf(c))
	}
	if !hasCode(bag, diag.RegionOutlivesCycle) {
		t.Fatal("want RegionOutlivesCycle diagnostic")
	}
}

func TestInferSameKindCycleIsFine(t *testing.T) {
	b := newTestBuilder()
	keep := addFunction(b, "keep", true)
	fn := addFunction(b, "ring", false)
	a := addLocal(b, fn, "a")
	c := addLocal(b, fn, "c")
	setBody(b, fn,
		b.Stmts.NewLet(source.Span{}, a, intLit(b, "1")),
		b.Stmts.NewLet(source.Span{}, c, intLit(b, "2")),
		b.Stmts.NewExpr(source.Span{}, b.Exprs.NewCall(source.Span{}, keep, []hir.ExprID{ident(b, a), ident(b, c)})),
		b.Stmts.NewStore(source.Span{}, a, intern(b, "next"), ident(b, c)),
		b.Stmts.NewStore(source.Span{}, c, intern(b, "prev"), ident(b, a)),
	)

	plan, _, err := runInfer(t, b, fn, nil)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !plan.Satisfiable() {
		t.Fatal("heap-to-heap cycle must be satisfiable")
	}
}

func TestInferDeterministic(t *testing.T) {
	build := func() (*hir.Builder, hir.FuncID) {
		b := newTestBuilder()
		keep := addFunction(b, "keep", true)
		fn := addFunction(b, "mix", false)
		v := addLocal(b, fn, "v")
		g := addLocal(b, fn, "g")
		s := addLocal(b, fn, "s")
		setBody(b, fn,
			b.Stmts.NewLet(source.Span{}, v, intLit(b, "1")),
			b.Stmts.NewLet(source.Span{}, g, intLit(b, "2")),
			b.Stmts.NewLet(source.Span{}, s, intLit(b, "3")),
			b.Stmts.NewExpr(source.Span{}, b.Exprs.NewCall(source.Span{}, keep, []hir.ExprID{ident(b, g)})),
			b.Stmts.NewExpr(source.Span{}, b.Exprs.NewSpawn(source.Span{}, ident(b, s))),
			b.Stmts.NewStore(source.Span{}, g, intern(b, "a"), ident(b, v)),
			b.Stmts.NewStore(source.Span{}, s, intern(b, "b"), ident(b, g)),
		)
		return b, fn
	}

	b1, fn1 := build()
	plan1, _, _ := runInfer(t, b1, fn1, nil)
	b2, fn2 := build()
	plan2, _, _ := runInfer(t, b2, fn2, nil)

	if diff := cmp.Diff(plan1.Assignments(), plan2.Assignments()); diff != "" {
		t.Fatalf("assignments differ between runs:\n%s", diff)
	}
	if diff := cmp.Diff(plan1.Edges(), plan2.Edges()); diff != "" {
		t.Fatalf("edges differ between runs:\n%s", diff)
	}
	if diff := cmp.Diff(plan1.Conflicts(), plan2.Conflicts()); diff != "" {
		t.Fatalf("conflicts differ between runs:\n%s", diff)
	}
}

func TestInferMismatchedEscapeResultRejected(t *testing.T) {
	b := newTestBuilder()
	fn1 := addFunction(b, "one", false)
	setBody(b, fn1)
	fn2 := addFunction(b, "two", false)
	setBody(b, fn2)

	esc, err := escape.Analyze(b, fn1, escape.Options{})
	if err != nil {
		t.Fatalf("escape.Analyze: %v", err)
	}
	if _, err := Infer(b, fn2, nil, esc, Options{}); err == nil {
		t.Fatal("want error for escape result from another function")
	}
}
