package hir

import (
	"seen/internal/source"
)

// StmtKind is the closed set of statement shapes.
type StmtKind uint8

const (
	StmtBlock StmtKind = iota
	StmtLet
	StmtAssign
	StmtStore
	StmtGlobalStore
	StmtReturn
	StmtIf
	StmtWhile
	StmtExpr
)

// Stmt is the kind/span header shared by all statements.
type Stmt struct {
	Kind    StmtKind
	Span    source.Span
	Payload PayloadID
}

// StmtBlockData is a lexical scope: bindings introduced by its statements die
// when the block ends.
type StmtBlockData struct {
	Stmts []StmtID
}

// StmtLetData introduces Bind with an initial value.
type StmtLetData struct {
	Bind  BindID
	Value ExprID
}

// StmtAssignData overwrites an existing binding.
type StmtAssignData struct {
	Bind  BindID
	Value ExprID
}

// StmtStoreData writes Value into a field of the object named by Object.
// The object ends up holding whatever Value references.
type StmtStoreData struct {
	Object BindID
	Field  source.StringID
	Value  ExprID
}

// StmtGlobalStoreData writes Value into a global slot with program-wide
// lifetime.
type StmtGlobalStoreData struct {
	Global source.StringID
	Value  ExprID
}

// StmtReturnData leaves the function; Value may be NoExprID for a bare
// return.
type StmtReturnData struct {
	Value ExprID
}

// StmtIfData branches on Cond; Else may be NoStmtID.
type StmtIfData struct {
	Cond ExprID
	Then StmtID
	Else StmtID
}

// StmtWhileData loops over Body while Cond holds.
type StmtWhileData struct {
	Cond ExprID
	Body StmtID
}

// StmtExprData evaluates an expression for its effects.
type StmtExprData struct {
	Expr ExprID
}
