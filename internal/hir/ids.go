package hir

type (
	// FuncID identifies a function in the builder's function arena.
	FuncID uint32
	// StmtID identifies a statement node.
	StmtID uint32
	// ExprID identifies an expression node.
	ExprID uint32
	// BindID identifies a local binding (parameter or let).
	BindID uint32
	// PayloadID indexes the per-kind payload arenas.
	PayloadID uint32
)

const (
	NoFuncID    FuncID    = 0
	NoStmtID    StmtID    = 0
	NoExprID    ExprID    = 0
	NoBindID    BindID    = 0
	NoPayloadID PayloadID = 0
)

func (id FuncID) IsValid() bool    { return id != NoFuncID }
func (id StmtID) IsValid() bool    { return id != NoStmtID }
func (id ExprID) IsValid() bool    { return id != NoExprID }
func (id BindID) IsValid() bool    { return id != NoBindID }
func (id PayloadID) IsValid() bool { return id != NoPayloadID }
