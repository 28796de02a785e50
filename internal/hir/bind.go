package hir

import (
	"seen/internal/source"
)

// Bind is a local binding: a parameter or a let-introduced name.
type Bind struct {
	Name source.StringID
	Span source.Span
	// Fn is the function that introduced the binding. Bindings never cross
	// function boundaries; an identifier naming a bind from another function
	// is malformed input.
	Fn FuncID
	// Scope is the block that introduced the binding, or NoStmtID for
	// parameters (whose scope is the whole body).
	Scope StmtID
}

// Binds manages allocation of bindings.
type Binds struct {
	Arena *Arena[Bind]
}

func NewBinds(capHint uint) *Binds {
	return &Binds{
		Arena: NewArena[Bind](capHint),
	}
}

// New allocates a binding and returns its ID.
func (b *Binds) New(bind Bind) BindID {
	return BindID(b.Arena.Allocate(bind))
}

// Get returns the binding for id.
func (b *Binds) Get(id BindID) *Bind {
	return b.Arena.Get(uint32(id))
}

func (b *Binds) Len() uint32 {
	return b.Arena.Len()
}
