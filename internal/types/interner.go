package types

import (
	"seen/internal/source"
)

// Interner stores resolved types behind dense IDs. The primitive types are
// pre-interned so every program shares their IDs.
type Interner struct {
	byID []Type
	unit TypeID
	boo  TypeID
	intT TypeID
	str  TypeID
}

// NewInterner creates an interner with the primitives pre-allocated.
func NewInterner() *Interner {
	in := &Interner{byID: make([]Type, 1, 16)} // index 0 = NoTypeID
	in.unit = in.Intern(Type{Kind: KindUnit})
	in.boo = in.Intern(Type{Kind: KindBool})
	in.intT = in.Intern(Type{Kind: KindInt})
	in.str = in.Intern(Type{Kind: KindString})
	return in
}

// Intern appends a type and returns its ID. Structural dedup is the front
// end's business; the memory passes only read what arrives.
func (in *Interner) Intern(t Type) TypeID {
	id := TypeID(len(in.byID))
	in.byID = append(in.byID, t)
	return id
}

// Get returns the type for id, or nil for the sentinel or an unknown ID.
func (in *Interner) Get(id TypeID) *Type {
	if id == NoTypeID || int(id) >= len(in.byID) {
		return nil
	}
	return &in.byID[id]
}

// Len returns the number of interned types, the sentinel included.
func (in *Interner) Len() int { return len(in.byID) }

// Unit returns the pre-interned unit type.
func (in *Interner) Unit() TypeID { return in.unit }

// Bool returns the pre-interned bool type.
func (in *Interner) Bool() TypeID { return in.boo }

// Int returns the pre-interned int type.
func (in *Interner) Int() TypeID { return in.intT }

// String returns the pre-interned string type.
func (in *Interner) String() TypeID { return in.str }

// NewRef interns a reference type pointing at elem.
func (in *Interner) NewRef(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindRef, Elem: elem})
}

// NewStruct interns a struct type.
func (in *Interner) NewStruct(name source.StringID, fields []Field) TypeID {
	return in.Intern(Type{Kind: KindStruct, Name: name, Fields: fields})
}

// NewUnsized interns an unsized type.
func (in *Interner) NewUnsized(name source.StringID) TypeID {
	return in.Intern(Type{Kind: KindUnsized, Name: name})
}
