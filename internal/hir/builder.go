package hir

import (
	"seen/internal/source"
)

// Hints sizes the arenas up front when the caller knows the program shape.
type Hints struct {
	Funcs uint
	Binds uint
	Stmts uint
	Exprs uint
}

// Builder owns every arena for one program. It is written while a program
// document is decoded or a test fixture is assembled, then read concurrently
// by the analysis passes.
type Builder struct {
	Funcs           *Funcs
	Binds           *Binds
	Stmts           *Stmts
	Exprs           *Exprs
	StringsInterner *source.Interner
}

// NewBuilder creates an empty builder. A nil interner gets a fresh one.
func NewBuilder(hints Hints, interner *source.Interner) *Builder {
	if interner == nil {
		interner = source.NewInterner()
	}
	return &Builder{
		Funcs:           NewFuncs(hints.Funcs),
		Binds:           NewBinds(hints.Binds),
		Stmts:           NewStmts(hints.Stmts),
		Exprs:           NewExprs(hints.Exprs),
		StringsInterner: interner,
	}
}

// BindName resolves a binding's name, or "" when unknown.
func (b *Builder) BindName(id BindID) string {
	bind := b.Binds.Get(id)
	if bind == nil || b.StringsInterner == nil {
		return ""
	}
	name, _ := b.StringsInterner.Lookup(bind.Name)
	return name
}

// FuncName resolves a function's name, or "" when unknown.
func (b *Builder) FuncName(id FuncID) string {
	fn := b.Funcs.Get(id)
	if fn == nil || b.StringsInterner == nil {
		return ""
	}
	name, _ := b.StringsInterner.Lookup(fn.Name)
	return name
}

// FuncBinds returns the bindings introduced by fn in introduction order
// (parameters first, then lets in arena order).
func (b *Builder) FuncBinds(fn FuncID) []BindID {
	if !fn.IsValid() {
		return nil
	}
	var out []BindID
	for i := uint32(1); i <= b.Binds.Len(); i++ {
		id := BindID(i)
		if b.Binds.Get(id).Fn == fn {
			out = append(out, id)
		}
	}
	return out
}
