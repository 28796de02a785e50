// Package types carries the slice of the resolved type environment the
// memory passes need. The full type checker lives upstream; what arrives
// here is, per binding, enough shape information to decide heap placement
// and whether assignments alias or copy.
package types

import (
	"seen/internal/source"
)

// TypeID identifies a type in the interner.
type TypeID uint32

// NoTypeID marks the absence of a type reference.
const NoTypeID TypeID = 0

// IsValid reports whether the ID refers to an interned type.
func (id TypeID) IsValid() bool { return id != NoTypeID }

// Kind is the closed set of type shapes the memory passes distinguish.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindString
	KindStruct
	KindRef
	// KindUnsized covers types whose size is unknown at compile time
	// (growable buffers, trait objects). They need heap placement no
	// matter how they escape.
	KindUnsized
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindRef:
		return "ref"
	case KindUnsized:
		return "unsized"
	}
	return "unknown"
}

// Field is one struct field.
type Field struct {
	Name source.StringID
	Type TypeID
}

// Type describes one resolved type.
type Type struct {
	Kind Kind
	// Name is set for struct types.
	Name source.StringID
	// Elem is the referent for KindRef.
	Elem TypeID
	// Fields is populated for KindStruct.
	Fields []Field
}
