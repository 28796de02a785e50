package hir

import (
	"seen/internal/source"
)

// ExprKind is the closed set of expression shapes the memory passes handle.
type ExprKind uint8

const (
	ExprIdent ExprKind = iota
	ExprLit
	ExprUnary
	ExprBinary
	ExprCall
	ExprSpawn
	ExprStruct
	ExprField
	ExprIndex
)

// Expr is the kind/span header shared by all expressions; per-kind data lives
// in the payload arenas.
type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

// ExprLitKind distinguishes literal flavours.
type ExprLitKind uint8

const (
	ExprLitInt ExprLitKind = iota
	ExprLitString
	ExprLitBool
)

// ExprUnaryOp enumerates unary operators.
type ExprUnaryOp uint8

const (
	ExprUnaryNeg ExprUnaryOp = iota
	ExprUnaryNot
)

// ExprBinaryOp enumerates binary operators. The memory passes never care
// which arithmetic op it is, only which operands flow where, so the set is
// deliberately coarse.
type ExprBinaryOp uint8

const (
	ExprBinaryArith ExprBinaryOp = iota
	ExprBinaryCompare
	ExprBinaryLogic
	ExprBinaryConcat
)

// ExprIdentData names a resolved local binding.
type ExprIdentData struct {
	Bind BindID
}

// ExprLitData is a literal constant; Value is the interned spelling.
type ExprLitData struct {
	Kind  ExprLitKind
	Value source.StringID
}

// ExprUnaryData applies Op to Operand.
type ExprUnaryData struct {
	Op      ExprUnaryOp
	Operand ExprID
}

// ExprBinaryData applies Op to Left and Right.
type ExprBinaryData struct {
	Op    ExprBinaryOp
	Left  ExprID
	Right ExprID
}

// ExprCallData calls a resolved function with positional arguments.
type ExprCallData struct {
	Callee FuncID
	Args   []ExprID
}

// ExprSpawnData starts a concurrent task evaluating Task. Everything the
// task's expression tree can reach is shared with the spawned execution.
type ExprSpawnData struct {
	Task ExprID
}

// ExprStructField is one field initializer in a struct literal.
type ExprStructField struct {
	Name  source.StringID
	Value ExprID
}

// ExprStructData builds a struct value; the result holds every field value.
type ExprStructData struct {
	Type   source.StringID
	Fields []ExprStructField
}

// ExprFieldData reads a field from Target.
type ExprFieldData struct {
	Target ExprID
	Name   source.StringID
}

// ExprIndexData reads an element of Target.
type ExprIndexData struct {
	Target ExprID
	Index  ExprID
}
