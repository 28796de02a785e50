package types

import (
	"seen/internal/hir"
)

// Env maps bindings to their resolved types. One Env covers a whole program
// document; it is written during decode and only read afterwards.
type Env struct {
	interner *Interner
	byBind   map[hir.BindID]TypeID
}

// NewEnv creates an empty environment over interner. A nil interner gets a
// fresh one.
func NewEnv(interner *Interner) *Env {
	if interner == nil {
		interner = NewInterner()
	}
	return &Env{
		interner: interner,
		byBind:   make(map[hir.BindID]TypeID),
	}
}

// Interner returns the type interner backing the environment.
func (e *Env) Interner() *Interner { return e.interner }

// SetType records the resolved type of bind.
func (e *Env) SetType(bind hir.BindID, t TypeID) {
	if e == nil || !bind.IsValid() {
		return
	}
	e.byBind[bind] = t
}

// TypeOf returns the resolved type of bind, or NoTypeID when the front end
// did not supply one.
func (e *Env) TypeOf(bind hir.BindID) TypeID {
	if e == nil {
		return NoTypeID
	}
	return e.byBind[bind]
}

// RequiresHeap reports whether a value of type id needs heap placement
// regardless of how it escapes: unsized types, and aggregates with an
// unsized field, cannot live in a fixed-size stack slot.
func (e *Env) RequiresHeap(id TypeID) bool {
	if e == nil {
		return false
	}
	t := e.interner.Get(id)
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindUnsized:
		return true
	case KindStruct:
		for _, f := range t.Fields {
			if ft := e.interner.Get(f.Type); ft != nil && ft.Kind == KindUnsized {
				return true
			}
		}
	}
	return false
}

// ReferenceShaped reports whether assigning a value of type id aliases
// storage rather than copying it. Aliasing assignments are what create
// lifetime dependencies between bindings.
func (e *Env) ReferenceShaped(id TypeID) bool {
	if e == nil {
		return false
	}
	t := e.interner.Get(id)
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindRef, KindStruct, KindUnsized, KindString:
		return true
	}
	return false
}
