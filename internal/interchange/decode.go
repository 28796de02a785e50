package interchange

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"seen/internal/diag"
	"seen/internal/hir"
	"seen/internal/source"
	"seen/internal/types"
)

// Document is a decoded program ready for analysis.
type Document struct {
	Builder *hir.Builder
	Env     *types.Env
}

// Decode reads a msgpack document from r and rebuilds it. Decode errors are
// also reported through reporter (which may be nil) so the CLI can render
// them alongside analysis diagnostics.
func Decode(r io.Reader, reporter diag.Reporter) (*Document, error) {
	var p Program
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		report(reporter, diag.IOLoadProgram, fmt.Sprintf("cannot decode program document: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Rebuild(&p, reporter)
}

// Rebuild validates a document and replays it into fresh arenas.
func Rebuild(p *Program, reporter diag.Reporter) (*Document, error) {
	if p.Schema != SchemaVersion {
		report(reporter, diag.IOBadSchema,
			fmt.Sprintf("document schema %d, this build reads %d", p.Schema, SchemaVersion))
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadSchema, p.Schema, SchemaVersion)
	}

	rb := &rebuilder{p: p, reporter: reporter}
	interner, err := rb.strings()
	if err != nil {
		return nil, err
	}
	env, err := rb.types()
	if err != nil {
		return nil, err
	}

	b := hir.NewBuilder(hir.Hints{
		Funcs: uint(len(p.Funcs)),
		Binds: uint(len(p.Binds)),
		Stmts: uint(len(p.Stmts)),
		Exprs: uint(len(p.Exprs)),
	}, interner)

	if err := rb.funcs(b); err != nil {
		return nil, err
	}
	if err := rb.binds(b, env); err != nil {
		return nil, err
	}
	if err := rb.stmts(b); err != nil {
		return nil, err
	}
	if err := rb.exprs(b); err != nil {
		return nil, err
	}
	return &Document{Builder: b, Env: env}, nil
}

func report(r diag.Reporter, code diag.Code, msg string) {
	if r != nil {
		diag.ReportError(r, code, source.Span{}, msg).Emit()
	}
}

type rebuilder struct {
	p        *Program
	reporter diag.Reporter
}

func (rb *rebuilder) dangling(what string, row int, ref uint32) error {
	msg := fmt.Sprintf("%s row %d references missing node %d", what, row+1, ref)
	report(rb.reporter, diag.IODanglingNode, msg)
	return fmt.Errorf("%w: %s", ErrMalformed, msg)
}

func (rb *rebuilder) checkString(what string, row int, ref uint32) error {
	if int(ref) >= len(rb.p.Strings) && !(ref == 0 && len(rb.p.Strings) == 0) {
		return rb.dangling(what, row, ref)
	}
	return nil
}

func (rb *rebuilder) checkStmt(what string, row int, ref uint32, required bool) error {
	if ref == 0 {
		if required {
			return rb.dangling(what, row, ref)
		}
		return nil
	}
	if int(ref) > len(rb.p.Stmts) {
		return rb.dangling(what, row, ref)
	}
	return nil
}

func (rb *rebuilder) checkExpr(what string, row int, ref uint32, required bool) error {
	if ref == 0 {
		if required {
			return rb.dangling(what, row, ref)
		}
		return nil
	}
	if int(ref) > len(rb.p.Exprs) {
		return rb.dangling(what, row, ref)
	}
	return nil
}

func (rb *rebuilder) checkBind(what string, row int, ref uint32) error {
	if ref == 0 || int(ref) > len(rb.p.Binds) {
		return rb.dangling(what, row, ref)
	}
	return nil
}

func (rb *rebuilder) strings() (*source.Interner, error) {
	in := source.NewInterner()
	for i, s := range rb.p.Strings {
		if i == 0 {
			if s != "" {
				return nil, fmt.Errorf("%w: string row 0 must be empty", ErrMalformed)
			}
			continue
		}
		if got := in.Intern(s); got != source.StringID(i) {
			msg := fmt.Sprintf("string table has duplicate entry %q at row %d", s, i)
			report(rb.reporter, diag.IODanglingNode, msg)
			return nil, fmt.Errorf("%w: %s", ErrMalformed, msg)
		}
	}
	return in, nil
}

// primitivePrefix is the fixed leading order of any non-empty type table.
var primitivePrefix = []types.Kind{types.KindUnit, types.KindBool, types.KindInt, types.KindString}

func (rb *rebuilder) types() (*types.Env, error) {
	rows := rb.p.Types
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) < len(primitivePrefix) {
		return nil, fmt.Errorf("%w: type table misses primitive prefix", ErrMalformed)
	}
	for i, want := range primitivePrefix {
		if types.Kind(rows[i].Kind) != want {
			return nil, fmt.Errorf("%w: type row %d is %d, want primitive %v", ErrMalformed, i, rows[i].Kind, want)
		}
	}

	env := types.NewEnv(nil)
	in := env.Interner()
	for i := len(primitivePrefix); i < len(rows); i++ {
		row := rows[i]
		if row.Kind > uint8(types.KindUnsized) {
			return nil, fmt.Errorf("%w: type row %d has unknown kind %d", ErrMalformed, i, row.Kind)
		}
		if err := rb.checkString("type", i, row.Name); err != nil {
			return nil, err
		}
		if int(row.Elem) > len(rows) {
			return nil, rb.dangling("type", i, row.Elem)
		}
		t := types.Type{
			Kind: types.Kind(row.Kind),
			Name: source.StringID(row.Name),
			Elem: types.TypeID(row.Elem),
		}
		for _, f := range row.Fields {
			if err := rb.checkString("type field", i, f.Name); err != nil {
				return nil, err
			}
			if int(f.Type) > len(rows) {
				return nil, rb.dangling("type field", i, f.Type)
			}
			t.Fields = append(t.Fields, types.Field{Name: source.StringID(f.Name), Type: types.TypeID(f.Type)})
		}
		in.Intern(t)
	}
	return env, nil
}

func (rb *rebuilder) funcs(b *hir.Builder) error {
	for i, row := range rb.p.Funcs {
		if err := rb.checkString("function", i, row.Name); err != nil {
			return err
		}
		if err := rb.checkStmt("function", i, row.Body, false); err != nil {
			return err
		}
		params := make([]hir.BindID, len(row.Params))
		for j, pRef := range row.Params {
			if err := rb.checkBind("function param", i, pRef); err != nil {
				return err
			}
			params[j] = hir.BindID(pRef)
		}
		b.Funcs.New(hir.Func{
			Name:        source.StringID(row.Name),
			Span:        rowSpan(row.Span),
			Params:      params,
			Body:        hir.StmtID(row.Body),
			RetainsArgs: row.RetainsArgs,
		})
	}
	return nil
}

func (rb *rebuilder) binds(b *hir.Builder, env *types.Env) error {
	for i, row := range rb.p.Binds {
		if err := rb.checkString("binding", i, row.Name); err != nil {
			return err
		}
		if row.Fn == 0 || int(row.Fn) > len(rb.p.Funcs) {
			return rb.dangling("binding", i, row.Fn)
		}
		if err := rb.checkStmt("binding", i, row.Scope, false); err != nil {
			return err
		}
		if row.Type != 0 {
			if env == nil || int(row.Type) > len(rb.p.Types) {
				return rb.dangling("binding", i, row.Type)
			}
		}
		id := b.Binds.New(hir.Bind{
			Name:  source.StringID(row.Name),
			Span:  rowSpan(row.Span),
			Fn:    hir.FuncID(row.Fn),
			Scope: hir.StmtID(row.Scope),
		})
		if row.Type != 0 {
			env.SetType(id, types.TypeID(row.Type))
		}
	}
	return nil
}

func (rb *rebuilder) stmts(b *hir.Builder) error {
	for i, row := range rb.p.Stmts {
		span := rowSpan(row.Span)
		var id hir.StmtID
		switch hir.StmtKind(row.Kind) {
		case hir.StmtBlock:
			kids := make([]hir.StmtID, len(row.Stmts))
			for j, kid := range row.Stmts {
				if err := rb.checkStmt("block", i, kid, true); err != nil {
					return err
				}
				kids[j] = hir.StmtID(kid)
			}
			id = b.Stmts.NewBlock(span, kids)
		case hir.StmtLet:
			if err := rb.checkBind("let", i, row.Bind); err != nil {
				return err
			}
			if err := rb.checkExpr("let", i, row.Value, true); err != nil {
				return err
			}
			id = b.Stmts.NewLet(span, hir.BindID(row.Bind), hir.ExprID(row.Value))
		case hir.StmtAssign:
			if err := rb.checkBind("assign", i, row.Bind); err != nil {
				return err
			}
			if err := rb.checkExpr("assign", i, row.Value, true); err != nil {
				return err
			}
			id = b.Stmts.NewAssign(span, hir.BindID(row.Bind), hir.ExprID(row.Value))
		case hir.StmtStore:
			if err := rb.checkBind("store", i, row.Bind); err != nil {
				return err
			}
			if err := rb.checkString("store", i, row.Name); err != nil {
				return err
			}
			if err := rb.checkExpr("store", i, row.Value, true); err != nil {
				return err
			}
			id = b.Stmts.NewStore(span, hir.BindID(row.Bind), source.StringID(row.Name), hir.ExprID(row.Value))
		case hir.StmtGlobalStore:
			if err := rb.checkString("global store", i, row.Name); err != nil {
				return err
			}
			if err := rb.checkExpr("global store", i, row.Value, true); err != nil {
				return err
			}
			id = b.Stmts.NewGlobalStore(span, source.StringID(row.Name), hir.ExprID(row.Value))
		case hir.StmtReturn:
			if err := rb.checkExpr("return", i, row.Value, false); err != nil {
				return err
			}
			id = b.Stmts.NewReturn(span, hir.ExprID(row.Value))
		case hir.StmtIf:
			if err := rb.checkExpr("if", i, row.Cond, true); err != nil {
				return err
			}
			if err := rb.checkStmt("if", i, row.Then, true); err != nil {
				return err
			}
			if err := rb.checkStmt("if", i, row.Else, false); err != nil {
				return err
			}
			id = b.Stmts.NewIf(span, hir.ExprID(row.Cond), hir.StmtID(row.Then), hir.StmtID(row.Else))
		case hir.StmtWhile:
			if err := rb.checkExpr("while", i, row.Cond, true); err != nil {
				return err
			}
			if err := rb.checkStmt("while", i, row.Then, true); err != nil {
				return err
			}
			id = b.Stmts.NewWhile(span, hir.ExprID(row.Cond), hir.StmtID(row.Then))
		case hir.StmtExpr:
			if err := rb.checkExpr("expr stmt", i, row.Value, true); err != nil {
				return err
			}
			id = b.Stmts.NewExpr(span, hir.ExprID(row.Value))
		default:
			return fmt.Errorf("%w: statement row %d has unknown kind %d", ErrMalformed, i, row.Kind)
		}
		if id != hir.StmtID(i+1) {
			return fmt.Errorf("%w: statement table replay drifted at row %d", ErrMalformed, i)
		}
	}
	return nil
}

func (rb *rebuilder) exprs(b *hir.Builder) error {
	for i, row := range rb.p.Exprs {
		span := rowSpan(row.Span)
		var id hir.ExprID
		switch hir.ExprKind(row.Kind) {
		case hir.ExprIdent:
			if err := rb.checkBind("ident", i, row.Bind); err != nil {
				return err
			}
			id = b.Exprs.NewIdent(span, hir.BindID(row.Bind))
		case hir.ExprLit:
			if row.LitKind > uint8(hir.ExprLitBool) {
				return fmt.Errorf("%w: literal row %d has unknown kind %d", ErrMalformed, i, row.LitKind)
			}
			if err := rb.checkString("literal", i, row.Lit); err != nil {
				return err
			}
			id = b.Exprs.NewLiteral(span, hir.ExprLitKind(row.LitKind), source.StringID(row.Lit))
		case hir.ExprUnary:
			if row.Op > uint8(hir.ExprUnaryNot) {
				return fmt.Errorf("%w: unary row %d has unknown op %d", ErrMalformed, i, row.Op)
			}
			if err := rb.checkExpr("unary", i, row.Operand, true); err != nil {
				return err
			}
			id = b.Exprs.NewUnary(span, hir.ExprUnaryOp(row.Op), hir.ExprID(row.Operand))
		case hir.ExprBinary:
			if row.Op > uint8(hir.ExprBinaryConcat) {
				return fmt.Errorf("%w: binary row %d has unknown op %d", ErrMalformed, i, row.Op)
			}
			if err := rb.checkExpr("binary", i, row.Left, true); err != nil {
				return err
			}
			if err := rb.checkExpr("binary", i, row.Right, true); err != nil {
				return err
			}
			id = b.Exprs.NewBinary(span, hir.ExprBinaryOp(row.Op), hir.ExprID(row.Left), hir.ExprID(row.Right))
		case hir.ExprCall:
			if row.Callee == 0 || int(row.Callee) > len(rb.p.Funcs) {
				return rb.dangling("call", i, row.Callee)
			}
			args := make([]hir.ExprID, len(row.Args))
			for j, arg := range row.Args {
				if err := rb.checkExpr("call arg", i, arg, true); err != nil {
					return err
				}
				args[j] = hir.ExprID(arg)
			}
			id = b.Exprs.NewCall(span, hir.FuncID(row.Callee), args)
		case hir.ExprSpawn:
			if err := rb.checkExpr("spawn", i, row.Task, true); err != nil {
				return err
			}
			id = b.Exprs.NewSpawn(span, hir.ExprID(row.Task))
		case hir.ExprStruct:
			if err := rb.checkString("struct literal", i, row.Type); err != nil {
				return err
			}
			fields := make([]hir.ExprStructField, len(row.Inits))
			for j, f := range row.Inits {
				if err := rb.checkString("struct field", i, f.Name); err != nil {
					return err
				}
				if err := rb.checkExpr("struct field", i, f.Value, true); err != nil {
					return err
				}
				fields[j] = hir.ExprStructField{Name: source.StringID(f.Name), Value: hir.ExprID(f.Value)}
			}
			id = b.Exprs.NewStruct(span, source.StringID(row.Type), fields)
		case hir.ExprField:
			if err := rb.checkExpr("field access", i, row.Target, true); err != nil {
				return err
			}
			if err := rb.checkString("field access", i, row.Name); err != nil {
				return err
			}
			id = b.Exprs.NewField(span, hir.ExprID(row.Target), source.StringID(row.Name))
		case hir.ExprIndex:
			if err := rb.checkExpr("index", i, row.Target, true); err != nil {
				return err
			}
			if err := rb.checkExpr("index", i, row.Index, true); err != nil {
				return err
			}
			id = b.Exprs.NewIndex(span, hir.ExprID(row.Target), hir.ExprID(row.Index))
		default:
			return fmt.Errorf("%w: expression row %d has unknown kind %d", ErrMalformed, i, row.Kind)
		}
		if id != hir.ExprID(i+1) {
			return fmt.Errorf("%w: expression table replay drifted at row %d", ErrMalformed, i)
		}
	}
	return nil
}

func rowSpan(r SpanRow) source.Span {
	return source.Span{File: source.FileID(r.File), Start: r.Start, End: r.End}
}
