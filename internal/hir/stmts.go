package hir

import (
	"seen/internal/source"
)

// Stmts manages allocation of statement nodes and their payloads.
type Stmts struct {
	Arena        *Arena[Stmt]
	Blocks       *Arena[StmtBlockData]
	Lets         *Arena[StmtLetData]
	Assigns      *Arena[StmtAssignData]
	Stores       *Arena[StmtStoreData]
	GlobalStores *Arena[StmtGlobalStoreData]
	Returns      *Arena[StmtReturnData]
	Ifs          *Arena[StmtIfData]
	Whiles       *Arena[StmtWhileData]
	Exprs        *Arena[StmtExprData]
}

// NewStmts creates the statement arenas, preallocated to capHint each.
func NewStmts(capHint uint) *Stmts {
	if capHint == 0 {
		capHint = 1 << 6
	}
	return &Stmts{
		Arena:        NewArena[Stmt](capHint),
		Blocks:       NewArena[StmtBlockData](capHint),
		Lets:         NewArena[StmtLetData](capHint),
		Assigns:      NewArena[StmtAssignData](capHint),
		Stores:       NewArena[StmtStoreData](capHint),
		GlobalStores: NewArena[StmtGlobalStoreData](capHint),
		Returns:      NewArena[StmtReturnData](capHint),
		Ifs:          NewArena[StmtIfData](capHint),
		Whiles:       NewArena[StmtWhileData](capHint),
		Exprs:        NewArena[StmtExprData](capHint),
	}
}

func (s *Stmts) new(kind StmtKind, span source.Span, payload PayloadID) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{
		Kind:    kind,
		Span:    span,
		Payload: payload,
	}))
}

// Get returns the statement header for id.
func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

// NewBlock creates a block statement.
func (s *Stmts) NewBlock(span source.Span, stmts []StmtID) StmtID {
	payload := s.Blocks.Allocate(StmtBlockData{Stmts: stmts})
	return s.new(StmtBlock, span, PayloadID(payload))
}

// Block returns block data for id, or nil when id is not a block.
func (s *Stmts) Block(id StmtID) *StmtBlockData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtBlock {
		return nil
	}
	return s.Blocks.Get(uint32(stmt.Payload))
}

// NewLet creates a let statement introducing bind.
func (s *Stmts) NewLet(span source.Span, bind BindID, value ExprID) StmtID {
	payload := s.Lets.Allocate(StmtLetData{Bind: bind, Value: value})
	return s.new(StmtLet, span, PayloadID(payload))
}

// Let returns let data for id.
func (s *Stmts) Let(id StmtID) *StmtLetData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtLet {
		return nil
	}
	return s.Lets.Get(uint32(stmt.Payload))
}

// NewAssign creates an assignment statement.
func (s *Stmts) NewAssign(span source.Span, bind BindID, value ExprID) StmtID {
	payload := s.Assigns.Allocate(StmtAssignData{Bind: bind, Value: value})
	return s.new(StmtAssign, span, PayloadID(payload))
}

// Assign returns assignment data for id.
func (s *Stmts) Assign(id StmtID) *StmtAssignData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtAssign {
		return nil
	}
	return s.Assigns.Get(uint32(stmt.Payload))
}

// NewStore creates a field store statement.
func (s *Stmts) NewStore(span source.Span, object BindID, field source.StringID, value ExprID) StmtID {
	payload := s.Stores.Allocate(StmtStoreData{Object: object, Field: field, Value: value})
	return s.new(StmtStore, span, PayloadID(payload))
}

// Store returns field store data for id.
func (s *Stmts) Store(id StmtID) *StmtStoreData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtStore {
		return nil
	}
	return s.Stores.Get(uint32(stmt.Payload))
}

// NewGlobalStore creates a global store statement.
func (s *Stmts) NewGlobalStore(span source.Span, global source.StringID, value ExprID) StmtID {
	payload := s.GlobalStores.Allocate(StmtGlobalStoreData{Global: global, Value: value})
	return s.new(StmtGlobalStore, span, PayloadID(payload))
}

// GlobalStore returns global store data for id.
func (s *Stmts) GlobalStore(id StmtID) *StmtGlobalStoreData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtGlobalStore {
		return nil
	}
	return s.GlobalStores.Get(uint32(stmt.Payload))
}

// NewReturn creates a return statement.
func (s *Stmts) NewReturn(span source.Span, value ExprID) StmtID {
	payload := s.Returns.Allocate(StmtReturnData{Value: value})
	return s.new(StmtReturn, span, PayloadID(payload))
}

// Return returns return data for id.
func (s *Stmts) Return(id StmtID) *StmtReturnData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtReturn {
		return nil
	}
	return s.Returns.Get(uint32(stmt.Payload))
}

// NewIf creates an if statement; else may be NoStmtID.
func (s *Stmts) NewIf(span source.Span, cond ExprID, then, els StmtID) StmtID {
	payload := s.Ifs.Allocate(StmtIfData{Cond: cond, Then: then, Else: els})
	return s.new(StmtIf, span, PayloadID(payload))
}

// If returns if data for id.
func (s *Stmts) If(id StmtID) *StmtIfData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtIf {
		return nil
	}
	return s.Ifs.Get(uint32(stmt.Payload))
}

// NewWhile creates a while statement.
func (s *Stmts) NewWhile(span source.Span, cond ExprID, body StmtID) StmtID {
	payload := s.Whiles.Allocate(StmtWhileData{Cond: cond, Body: body})
	return s.new(StmtWhile, span, PayloadID(payload))
}

// While returns while data for id.
func (s *Stmts) While(id StmtID) *StmtWhileData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtWhile {
		return nil
	}
	return s.Whiles.Get(uint32(stmt.Payload))
}

// NewExpr creates an expression statement.
func (s *Stmts) NewExpr(span source.Span, expr ExprID) StmtID {
	payload := s.Exprs.Allocate(StmtExprData{Expr: expr})
	return s.new(StmtExpr, span, PayloadID(payload))
}

// Expr returns expression statement data for id.
func (s *Stmts) Expr(id StmtID) *StmtExprData {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtExpr {
		return nil
	}
	return s.Exprs.Get(uint32(stmt.Payload))
}
