package interchange

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"seen/internal/hir"
	"seen/internal/source"
	"seen/internal/types"
)

func spanRow(s source.Span) SpanRow {
	return SpanRow{File: uint32(s.File), Start: s.Start, End: s.End}
}

func bindIDs(ids []hir.BindID) []uint32 {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func exprIDs(ids []hir.ExprID) []uint32 {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

// Build flattens a builder (and optional type environment) into a document.
func Build(b *hir.Builder, env *types.Env) (*Program, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil builder", ErrMalformed)
	}
	p := &Program{Schema: SchemaVersion}

	if b.StringsInterner != nil {
		p.Strings = b.StringsInterner.Snapshot()
	}

	if env != nil {
		in := env.Interner()
		for id := types.TypeID(1); int(id) < in.Len(); id++ {
			t := in.Get(id)
			row := TypeRow{Kind: uint8(t.Kind), Name: uint32(t.Name), Elem: uint32(t.Elem)}
			for _, f := range t.Fields {
				row.Fields = append(row.Fields, FieldRow{Name: uint32(f.Name), Type: uint32(f.Type)})
			}
			p.Types = append(p.Types, row)
		}
	}

	for id := hir.FuncID(1); uint32(id) <= b.Funcs.Len(); id++ {
		f := b.Funcs.Get(id)
		p.Funcs = append(p.Funcs, FuncRow{
			Name:        uint32(f.Name),
			Span:        spanRow(f.Span),
			Params:      bindIDs(f.Params),
			Body:        uint32(f.Body),
			RetainsArgs: f.RetainsArgs,
		})
	}

	for id := hir.BindID(1); uint32(id) <= b.Binds.Len(); id++ {
		bd := b.Binds.Get(id)
		row := BindRow{
			Name:  uint32(bd.Name),
			Span:  spanRow(bd.Span),
			Fn:    uint32(bd.Fn),
			Scope: uint32(bd.Scope),
		}
		if env != nil {
			row.Type = uint32(env.TypeOf(id))
		}
		p.Binds = append(p.Binds, row)
	}

	for id := hir.StmtID(1); uint32(id) <= b.Stmts.Arena.Len(); id++ {
		row, err := stmtRow(b, id)
		if err != nil {
			return nil, err
		}
		p.Stmts = append(p.Stmts, row)
	}

	for id := hir.ExprID(1); uint32(id) <= b.Exprs.Arena.Len(); id++ {
		row, err := exprRow(b, id)
		if err != nil {
			return nil, err
		}
		p.Exprs = append(p.Exprs, row)
	}

	return p, nil
}

func stmtRow(b *hir.Builder, id hir.StmtID) (StmtRow, error) {
	stmt := b.Stmts.Get(id)
	row := StmtRow{Kind: uint8(stmt.Kind), Span: spanRow(stmt.Span)}
	switch stmt.Kind {
	case hir.StmtBlock:
		data := b.Stmts.Block(id)
		row.Stmts = make([]uint32, len(data.Stmts))
		for i, s := range data.Stmts {
			row.Stmts[i] = uint32(s)
		}
	case hir.StmtLet:
		data := b.Stmts.Let(id)
		row.Bind = uint32(data.Bind)
		row.Value = uint32(data.Value)
	case hir.StmtAssign:
		data := b.Stmts.Assign(id)
		row.Bind = uint32(data.Bind)
		row.Value = uint32(data.Value)
	case hir.StmtStore:
		data := b.Stmts.Store(id)
		row.Bind = uint32(data.Object)
		row.Name = uint32(data.Field)
		row.Value = uint32(data.Value)
	case hir.StmtGlobalStore:
		data := b.Stmts.GlobalStore(id)
		row.Name = uint32(data.Global)
		row.Value = uint32(data.Value)
	case hir.StmtReturn:
		row.Value = uint32(b.Stmts.Return(id).Value)
	case hir.StmtIf:
		data := b.Stmts.If(id)
		row.Cond = uint32(data.Cond)
		row.Then = uint32(data.Then)
		row.Else = uint32(data.Else)
	case hir.StmtWhile:
		data := b.Stmts.While(id)
		row.Cond = uint32(data.Cond)
		row.Then = uint32(data.Body)
	case hir.StmtExpr:
		row.Value = uint32(b.Stmts.Expr(id).Expr)
	default:
		return StmtRow{}, fmt.Errorf("%w: statement %d has unknown kind %d", ErrMalformed, id, stmt.Kind)
	}
	return row, nil
}

func exprRow(b *hir.Builder, id hir.ExprID) (ExprRow, error) {
	expr := b.Exprs.Get(id)
	row := ExprRow{Kind: uint8(expr.Kind), Span: spanRow(expr.Span)}
	switch expr.Kind {
	case hir.ExprIdent:
		data, _ := b.Exprs.Ident(id)
		row.Bind = uint32(data.Bind)
	case hir.ExprLit:
		data, _ := b.Exprs.Literal(id)
		row.LitKind = uint8(data.Kind)
		row.Lit = uint32(data.Value)
	case hir.ExprUnary:
		data, _ := b.Exprs.Unary(id)
		row.Op = uint8(data.Op)
		row.Operand = uint32(data.Operand)
	case hir.ExprBinary:
		data, _ := b.Exprs.Binary(id)
		row.Op = uint8(data.Op)
		row.Left = uint32(data.Left)
		row.Right = uint32(data.Right)
	case hir.ExprCall:
		data, _ := b.Exprs.Call(id)
		row.Callee = uint32(data.Callee)
		row.Args = exprIDs(data.Args)
	case hir.ExprSpawn:
		data, _ := b.Exprs.Spawn(id)
		row.Task = uint32(data.Task)
	case hir.ExprStruct:
		data, _ := b.Exprs.Struct(id)
		row.Type = uint32(data.Type)
		for _, f := range data.Fields {
			row.Inits = append(row.Inits, FieldInitRow{Name: uint32(f.Name), Value: uint32(f.Value)})
		}
	case hir.ExprField:
		data, _ := b.Exprs.Field(id)
		row.Target = uint32(data.Target)
		row.Name = uint32(data.Name)
	case hir.ExprIndex:
		data, _ := b.Exprs.Index(id)
		row.Target = uint32(data.Target)
		row.Index = uint32(data.Index)
	default:
		return ExprRow{}, fmt.Errorf("%w: expression %d has unknown kind %d", ErrMalformed, id, expr.Kind)
	}
	return row, nil
}

// Encode flattens and writes a document to w.
func Encode(w io.Writer, b *hir.Builder, env *types.Env) error {
	p, err := Build(b, env)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(p)
}
