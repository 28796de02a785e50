package escape

import (
	"fmt"

	"seen/internal/diag"
	"seen/internal/hir"
)

// AnalysisError reports malformed input: a node referencing a binding or
// function that was never introduced. This is an upstream-pass bug, not a
// user error, so it surfaces as a Go error rather than a diagnostic.
type AnalysisError struct {
	Fn   hir.FuncID
	Expr hir.ExprID
	Bind hir.BindID
	Msg  string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("escape analysis: fn=%d expr=%d bind=%d: %s", e.Fn, e.Expr, e.Bind, e.Msg)
}

// Options configure an analysis run.
type Options struct {
	// Reporter receives advisory diagnostics (unused bindings). May be nil.
	Reporter diag.Reporter
}

// Analyze classifies every binding of fn. The walk is deterministic: records
// come back in introduction order (parameters first, then lets in program
// order), and branches merge by keeping the strictest classification.
func Analyze(b *hir.Builder, fn hir.FuncID, opts Options) (*Result, error) {
	if b == nil || !fn.IsValid() {
		return nil, &AnalysisError{Fn: fn, Msg: "nil builder or invalid function"}
	}
	f := b.Funcs.Get(fn)
	if f == nil {
		return nil, &AnalysisError{Fn: fn, Msg: "function not found"}
	}

	a := &analyzer{
		b:    b,
		fn:   fn,
		used: make(map[hir.BindID]bool),
		res: &Result{
			fn:    fn,
			index: make(map[hir.BindID]int),
		},
	}

	for _, p := range f.Params {
		if err := a.introduce(p, hir.NoStmtID); err != nil {
			return nil, err
		}
	}
	if err := a.collect(f.Body); err != nil {
		return nil, err
	}
	if err := a.walkStmt(f.Body); err != nil {
		return nil, err
	}
	if err := a.propagate(); err != nil {
		return nil, err
	}

	if opts.Reporter != nil {
		for _, rec := range a.res.records {
			if !a.used[rec.Bind] {
				bind := b.Binds.Get(rec.Bind)
				diag.ReportWarning(opts.Reporter, diag.EscUnusedBinding, bind.Span,
					fmt.Sprintf("binding %q is never used", b.BindName(rec.Bind))).Emit()
			}
		}
	}
	return a.res, nil
}

type analyzer struct {
	b      *hir.Builder
	fn     hir.FuncID
	used   map[hir.BindID]bool
	copies []copyEdge
	dirty  bool
	res    *Result
}

// copyEdge remembers a let/assign whose destination may escape later; the
// value tree then inherits the destination's classification.
type copyEdge struct {
	bind  hir.BindID
	value hir.ExprID
}

func (a *analyzer) introduce(bind hir.BindID, scope hir.StmtID) error {
	bd := a.b.Binds.Get(bind)
	if bd == nil {
		return &AnalysisError{Fn: a.fn, Bind: bind, Msg: "binding not found"}
	}
	if bd.Fn != a.fn {
		return &AnalysisError{Fn: a.fn, Bind: bind, Msg: "binding introduced by another function"}
	}
	if _, dup := a.res.index[bind]; dup {
		return &AnalysisError{Fn: a.fn, Bind: bind, Msg: "binding introduced twice"}
	}
	a.res.index[bind] = len(a.res.records)
	a.res.records = append(a.res.records, Record{Bind: bind, Kind: NonEscaping, Scope: scope})
	return nil
}

// collect registers every let-introduced binding with its enclosing block
// before any classification happens, so forward references inside the same
// block are still recognized as introduced.
func (a *analyzer) collect(id hir.StmtID) error {
	if !id.IsValid() {
		return nil
	}
	stmt := a.b.Stmts.Get(id)
	if stmt == nil {
		return &AnalysisError{Fn: a.fn, Msg: fmt.Sprintf("statement %d not found", id)}
	}
	switch stmt.Kind {
	case hir.StmtBlock:
		data := a.b.Stmts.Block(id)
		for _, child := range data.Stmts {
			cs := a.b.Stmts.Get(child)
			if cs == nil {
				return &AnalysisError{Fn: a.fn, Msg: fmt.Sprintf("statement %d not found", child)}
			}
			if cs.Kind == hir.StmtLet {
				let := a.b.Stmts.Let(child)
				if err := a.introduce(let.Bind, id); err != nil {
					return err
				}
			}
			if err := a.collect(child); err != nil {
				return err
			}
		}
	case hir.StmtIf:
		data := a.b.Stmts.If(id)
		if err := a.collect(data.Then); err != nil {
			return err
		}
		return a.collect(data.Else)
	case hir.StmtWhile:
		return a.collect(a.b.Stmts.While(id).Body)
	}
	return nil
}

func (a *analyzer) walkStmt(id hir.StmtID) error {
	if !id.IsValid() {
		return nil
	}
	stmt := a.b.Stmts.Get(id)
	if stmt == nil {
		return &AnalysisError{Fn: a.fn, Msg: fmt.Sprintf("statement %d not found", id)}
	}
	switch stmt.Kind {
	case hir.StmtBlock:
		for _, child := range a.b.Stmts.Block(id).Stmts {
			if err := a.walkStmt(child); err != nil {
				return err
			}
		}
	case hir.StmtLet:
		data := a.b.Stmts.Let(id)
		a.copies = append(a.copies, copyEdge{bind: data.Bind, value: data.Value})
		return a.mark(data.Value, NonEscaping)
	case hir.StmtAssign:
		data := a.b.Stmts.Assign(id)
		if _, ok := a.res.index[data.Bind]; !ok {
			return &AnalysisError{Fn: a.fn, Bind: data.Bind, Msg: "assignment to a binding that was never introduced"}
		}
		a.copies = append(a.copies, copyEdge{bind: data.Bind, value: data.Value})
		return a.mark(data.Value, NonEscaping)
	case hir.StmtStore:
		data := a.b.Stmts.Store(id)
		if _, ok := a.res.index[data.Object]; !ok {
			return &AnalysisError{Fn: a.fn, Bind: data.Object, Msg: "store into a binding that was never introduced"}
		}
		a.used[data.Object] = true
		return a.mark(data.Value, NonEscaping)
	case hir.StmtGlobalStore:
		return a.mark(a.b.Stmts.GlobalStore(id).Value, GlobalEscape)
	case hir.StmtReturn:
		return a.mark(a.b.Stmts.Return(id).Value, ReturnEscape)
	case hir.StmtIf:
		data := a.b.Stmts.If(id)
		if err := a.mark(data.Cond, NonEscaping); err != nil {
			return err
		}
		if err := a.walkStmt(data.Then); err != nil {
			return err
		}
		return a.walkStmt(data.Else)
	case hir.StmtWhile:
		data := a.b.Stmts.While(id)
		if err := a.mark(data.Cond, NonEscaping); err != nil {
			return err
		}
		return a.walkStmt(data.Body)
	case hir.StmtExpr:
		return a.mark(a.b.Stmts.Expr(id).Expr, NonEscaping)
	}
	return nil
}

// propagate drags classifications backward through copies: in
// `let y = x; return y` the return marks y, and the copy then re-marks x
// with whatever y ended up as. Classifications only move up the lattice,
// so the loop terminates.
func (a *analyzer) propagate() error {
	for {
		a.dirty = false
		for _, c := range a.copies {
			kind := a.res.records[a.res.index[c.bind]].Kind
			if kind == NonEscaping {
				continue
			}
			if err := a.mark(c.value, kind); err != nil {
				return err
			}
		}
		if !a.dirty {
			return nil
		}
	}
}

// mark propagates an escape classification through an expression tree.
// Every binding reachable from the expression is upgraded to at least kind;
// spawn and retaining calls tighten the requirement for their subtrees.
func (a *analyzer) mark(id hir.ExprID, kind Kind) error {
	if !id.IsValid() {
		return nil
	}
	expr := a.b.Exprs.Get(id)
	if expr == nil {
		return &AnalysisError{Fn: a.fn, Expr: id, Msg: "expression not found"}
	}
	switch expr.Kind {
	case hir.ExprIdent:
		data, _ := a.b.Exprs.Ident(id)
		i, ok := a.res.index[data.Bind]
		if !ok {
			return &AnalysisError{Fn: a.fn, Expr: id, Bind: data.Bind, Msg: "reference to a binding that was never introduced"}
		}
		a.used[data.Bind] = true
		if kind.Outranks(a.res.records[i].Kind) {
			a.res.records[i].Kind = kind
			a.res.records[i].Site = expr.Span
			a.dirty = true
		}
	case hir.ExprLit:
		// Constants never escape.
	case hir.ExprUnary:
		data, _ := a.b.Exprs.Unary(id)
		return a.mark(data.Operand, kind)
	case hir.ExprBinary:
		data, _ := a.b.Exprs.Binary(id)
		if err := a.mark(data.Left, kind); err != nil {
			return err
		}
		return a.mark(data.Right, kind)
	case hir.ExprCall:
		data, _ := a.b.Exprs.Call(id)
		callee := a.b.Funcs.Get(data.Callee)
		if callee == nil {
			return &AnalysisError{Fn: a.fn, Expr: id, Msg: "call to an unknown function"}
		}
		argKind := kind
		if callee.RetainsArgs && GlobalEscape.Outranks(argKind) {
			argKind = GlobalEscape
		}
		for _, arg := range data.Args {
			if err := a.mark(arg, argKind); err != nil {
				return err
			}
		}
	case hir.ExprSpawn:
		data, _ := a.b.Exprs.Spawn(id)
		taskKind := kind
		if SharedEscape.Outranks(taskKind) {
			taskKind = SharedEscape
		}
		return a.mark(data.Task, taskKind)
	case hir.ExprStruct:
		data, _ := a.b.Exprs.Struct(id)
		for _, f := range data.Fields {
			if err := a.mark(f.Value, kind); err != nil {
				return err
			}
		}
	case hir.ExprField:
		data, _ := a.b.Exprs.Field(id)
		return a.mark(data.Target, kind)
	case hir.ExprIndex:
		data, _ := a.b.Exprs.Index(id)
		if err := a.mark(data.Target, kind); err != nil {
			return err
		}
		return a.mark(data.Index, kind)
	}
	return nil
}
