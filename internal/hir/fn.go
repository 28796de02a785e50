package hir

import (
	"seen/internal/source"
)

// Func is one fully resolved function body.
type Func struct {
	Name   source.StringID
	Span   source.Span
	Params []BindID
	Body   StmtID
	// RetainsArgs marks a callee documented as keeping its arguments alive
	// beyond the call. Callers must treat values passed to it as escaping
	// to program lifetime.
	RetainsArgs bool
}

// Funcs manages allocation of functions.
type Funcs struct {
	Arena *Arena[Func]
}

func NewFuncs(capHint uint) *Funcs {
	return &Funcs{
		Arena: NewArena[Func](capHint),
	}
}

// New allocates a function and returns its ID.
func (f *Funcs) New(fn Func) FuncID {
	return FuncID(f.Arena.Allocate(fn))
}

// Get returns the function for id.
func (f *Funcs) Get(id FuncID) *Func {
	return f.Arena.Get(uint32(id))
}

func (f *Funcs) Len() uint32 {
	return f.Arena.Len()
}
