package regions

import (
	"errors"
	"fmt"

	"seen/internal/diag"
	"seen/internal/escape"
	"seen/internal/hir"
	"seen/internal/types"
)

// ErrConflict is returned when a plan carries unsatisfiable lifetime
// dependencies. The plan itself is still returned alongside it.
var ErrConflict = errors.New("region plan has lifetime conflicts")

// Options configure an inference run.
type Options struct {
	// Reporter receives conflicts and placement advisories. May be nil.
	Reporter diag.Reporter
}

// Infer places every binding of fn in a region and validates the outlives
// edges between them. The escape result must come from the same function.
// Placements are deterministic: assignments follow binding-introduction
// order, edges follow statement order.
func Infer(b *hir.Builder, fn hir.FuncID, env *types.Env, esc *escape.Result, opts Options) (*Plan, error) {
	if b == nil || !fn.IsValid() {
		return nil, fmt.Errorf("region inference: invalid input for fn=%d", fn)
	}
	if esc == nil || esc.Fn() != fn {
		return nil, fmt.Errorf("region inference: escape result does not cover fn=%d", fn)
	}
	f := b.Funcs.Get(fn)
	if f == nil {
		return nil, fmt.Errorf("region inference: function %d not found", fn)
	}

	inf := &inferencer{
		b:    b,
		env:  env,
		opts: opts,
		plan: &Plan{
			fn:    fn,
			index: make(map[hir.BindID]int),
		},
	}

	for _, rec := range esc.Records() {
		inf.place(rec)
	}
	inf.walkStmt(f.Body)
	inf.checkCycles()

	if len(inf.plan.conflicts) > 0 {
		return inf.plan, fmt.Errorf("%s: %w", b.FuncName(fn), ErrConflict)
	}
	return inf.plan, nil
}

type inferencer struct {
	b    *hir.Builder
	env  *types.Env
	opts Options
	plan *Plan
}

// placement maps an escape classification to the weakest region that can
// hold it.
func placement(k escape.Kind) Kind {
	switch k {
	case escape.ReturnEscape:
		return ReturnBound
	case escape.GlobalEscape:
		return Heap
	case escape.SharedEscape:
		return Shared
	}
	return Stack
}

func (inf *inferencer) place(rec escape.Record) {
	kind := placement(rec.Kind)
	promoted := false
	if kind == Stack && inf.env != nil && inf.env.RequiresHeap(inf.env.TypeOf(rec.Bind)) {
		kind = Heap
		promoted = true
	}
	bind := inf.b.Binds.Get(rec.Bind)
	a := Assignment{
		Bind:     rec.Bind,
		Kind:     kind,
		Escape:   rec.Kind,
		Promoted: promoted,
	}
	if bind != nil {
		a.Span = bind.Span
	}
	inf.plan.index[rec.Bind] = len(inf.plan.assignments)
	inf.plan.assignments = append(inf.plan.assignments, a)

	if inf.opts.Reporter == nil {
		return
	}
	name := inf.b.BindName(rec.Bind)
	if promoted {
		diag.ReportInfo(inf.opts.Reporter, diag.RegionHeapPromotion, a.Span,
			fmt.Sprintf("binding %q is heap-placed because its type has no fixed size", name)).Emit()
	}
	if kind == Shared {
		diag.ReportInfo(inf.opts.Reporter, diag.RegionSharedLifetime, a.Span,
			fmt.Sprintf("binding %q lives until the last task releases it", name)).Emit()
	}
}

func (inf *inferencer) walkStmt(id hir.StmtID) {
	if !id.IsValid() {
		return
	}
	stmt := inf.b.Stmts.Get(id)
	if stmt == nil {
		return
	}
	switch stmt.Kind {
	case hir.StmtBlock:
		for _, child := range inf.b.Stmts.Block(id).Stmts {
			inf.walkStmt(child)
		}
	case hir.StmtLet:
		data := inf.b.Stmts.Let(id)
		inf.addEdges(data.Value, data.Bind, stmt)
	case hir.StmtAssign:
		data := inf.b.Stmts.Assign(id)
		inf.addEdges(data.Value, data.Bind, stmt)
	case hir.StmtStore:
		data := inf.b.Stmts.Store(id)
		inf.addEdges(data.Value, data.Object, stmt)
	case hir.StmtIf:
		data := inf.b.Stmts.If(id)
		inf.walkStmt(data.Then)
		inf.walkStmt(data.Else)
	case hir.StmtWhile:
		inf.walkStmt(inf.b.Stmts.While(id).Body)
	}
}

// addEdges creates an outlives edge from every aliasing source binding in
// value to the destination binding dst.
func (inf *inferencer) addEdges(value hir.ExprID, dst hir.BindID, stmt *hir.Stmt) {
	di, ok := inf.plan.index[dst]
	if !ok {
		if inf.opts.Reporter != nil {
			diag.ReportError(inf.opts.Reporter, diag.RegionUnplannedBind, stmt.Span,
				fmt.Sprintf("binding %q has no region placement", inf.b.BindName(dst))).Emit()
		}
		return
	}
	dstKind := inf.plan.assignments[di].Kind
	for _, src := range inf.sources(value, nil) {
		if src == dst {
			continue
		}
		si, ok := inf.plan.index[src]
		if !ok {
			if inf.opts.Reporter != nil {
				diag.ReportError(inf.opts.Reporter, diag.RegionUnplannedBind, stmt.Span,
					fmt.Sprintf("binding %q has no region placement", inf.b.BindName(src))).Emit()
			}
			continue
		}
		srcKind := inf.plan.assignments[si].Kind
		edge := Edge{
			From:     src,
			To:       dst,
			FromKind: srcKind,
			ToKind:   dstKind,
			Site:     stmt.Span,
		}
		inf.plan.edges = append(inf.plan.edges, edge)
		if !srcKind.CanFeed(dstKind) {
			inf.plan.conflicts = append(inf.plan.conflicts, edge)
			inf.reportConflict(edge)
		}
	}
}

func (inf *inferencer) reportConflict(e Edge) {
	if inf.opts.Reporter == nil {
		return
	}
	fromName := inf.b.BindName(e.From)
	toName := inf.b.BindName(e.To)
	rb := diag.ReportError(inf.opts.Reporter, diag.RegionConflict, e.Site,
		fmt.Sprintf("%s value %q cannot be stored where %s value %q can reach it",
			e.FromKind, fromName, e.ToKind, toName))
	if from := inf.b.Binds.Get(e.From); from != nil {
		rb.WithNote(from.Span, fmt.Sprintf("%q placed in a %s region here", fromName, e.FromKind))
	}
	if to := inf.b.Binds.Get(e.To); to != nil {
		rb.WithNote(to.Span, fmt.Sprintf("%q placed in a %s region here", toName, e.ToKind))
	}
	rb.Emit()
}

// sources collects the bindings in expr whose values alias storage when
// assigned. Copy-shaped values (ints, bools) create no lifetime dependency.
func (inf *inferencer) sources(id hir.ExprID, acc []hir.BindID) []hir.BindID {
	if !id.IsValid() {
		return acc
	}
	expr := inf.b.Exprs.Get(id)
	if expr == nil {
		return acc
	}
	switch expr.Kind {
	case hir.ExprIdent:
		data, _ := inf.b.Exprs.Ident(id)
		if inf.aliasing(data.Bind) {
			acc = append(acc, data.Bind)
		}
	case hir.ExprUnary:
		data, _ := inf.b.Exprs.Unary(id)
		acc = inf.sources(data.Operand, acc)
	case hir.ExprBinary:
		data, _ := inf.b.Exprs.Binary(id)
		acc = inf.sources(data.Left, acc)
		acc = inf.sources(data.Right, acc)
	case hir.ExprCall:
		data, _ := inf.b.Exprs.Call(id)
		for _, arg := range data.Args {
			acc = inf.sources(arg, acc)
		}
	case hir.ExprSpawn:
		data, _ := inf.b.Exprs.Spawn(id)
		acc = inf.sources(data.Task, acc)
	case hir.ExprStruct:
		data, _ := inf.b.Exprs.Struct(id)
		for _, f := range data.Fields {
			acc = inf.sources(f.Value, acc)
		}
	case hir.ExprField:
		data, _ := inf.b.Exprs.Field(id)
		acc = inf.sources(data.Target, acc)
	case hir.ExprIndex:
		data, _ := inf.b.Exprs.Index(id)
		acc = inf.sources(data.Target, acc)
		acc = inf.sources(data.Index, acc)
	}
	return acc
}

// aliasing reports whether assigning bind's value aliases storage. With no
// type environment every binding is treated as aliasing, which errs toward
// reporting conflicts rather than missing them.
func (inf *inferencer) aliasing(bind hir.BindID) bool {
	if inf.env == nil {
		return true
	}
	t := inf.env.TypeOf(bind)
	if !t.IsValid() {
		return true
	}
	return inf.env.ReferenceShaped(t)
}

// checkCycles rejects outlives cycles that span more than one lifetime
// class. A cycle inside a single class (mutually referencing heap objects,
// say) is harmless; a cycle crossing classes means two bindings each demand
// to outlive the other.
func (inf *inferencer) checkCycles() {
	adj := make(map[hir.BindID][]Edge)
	for _, e := range inf.plan.edges {
		adj[e.From] = append(adj[e.From], e)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[hir.BindID]int)
	var path []Edge

	var visit func(n hir.BindID)
	visit = func(n hir.BindID) {
		color[n] = gray
		for _, e := range adj[n] {
			switch color[e.To] {
			case white:
				path = append(path, e)
				visit(e.To)
				path = path[:len(path)-1]
			case gray:
				inf.flagCycle(append(append([]Edge(nil), path...), e), e.To)
			}
		}
		color[n] = black
	}

	for _, a := range inf.plan.assignments {
		if color[a.Bind] == white {
			visit(a.Bind)
		}
	}
}

func (inf *inferencer) flagCycle(path []Edge, start hir.BindID) {
	// Trim the path down to the cycle proper.
	from := 0
	for i, e := range path {
		if e.From == start {
			from = i
			break
		}
	}
	cycle := path[from:]

	kinds := make(map[Kind]bool)
	for _, e := range cycle {
		kinds[e.FromKind] = true
		kinds[e.ToKind] = true
	}
	if len(kinds) < 2 {
		return
	}

	last := cycle[len(cycle)-1]
	inf.plan.conflicts = append(inf.plan.conflicts, last)
	if inf.opts.Reporter == nil {
		return
	}
	rb := diag.ReportError(inf.opts.Reporter, diag.RegionOutlivesCycle, last.Site,
		fmt.Sprintf("bindings %q and %q each require outliving the other",
			inf.b.BindName(last.From), inf.b.BindName(last.To)))
	for _, e := range cycle {
		rb.WithNote(e.Site, fmt.Sprintf("%q (%s) must outlive %q (%s) here",
			inf.b.BindName(e.From), e.FromKind, inf.b.BindName(e.To), e.ToKind))
	}
	rb.Emit()
}
