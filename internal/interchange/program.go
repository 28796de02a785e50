// Package interchange reads and writes program documents: the flat msgpack
// form in which the front end hands function bodies to the memory passes.
// Tables are ID-ordered, so row i of a table is the node with ID i+1 and
// references between rows are plain indices.
package interchange

import "errors"

// SchemaVersion is bumped whenever the document layout changes. Documents
// with any other version are rejected outright.
const SchemaVersion uint16 = 1

var (
	// ErrBadSchema is returned for a document written under a different
	// schema version.
	ErrBadSchema = errors.New("interchange: unsupported schema")
	// ErrMalformed is returned when a document references nodes, strings,
	// or types that do not exist.
	ErrMalformed = errors.New("interchange: malformed program document")
)

// SpanRow is a source span in table form.
type SpanRow struct {
	File  uint32
	Start uint32
	End   uint32
}

// FieldRow is one struct field of a type row.
type FieldRow struct {
	Name uint32
	Type uint32
}

// TypeRow is one interned type. The first four rows are always the
// primitives (unit, bool, int, string) in that order.
type TypeRow struct {
	Kind   uint8
	Name   uint32
	Elem   uint32
	Fields []FieldRow
}

// FuncRow is one function header.
type FuncRow struct {
	Name        uint32
	Span        SpanRow
	Params      []uint32
	Body        uint32
	RetainsArgs bool
}

// BindRow is one binding. Type may be zero when the front end supplied no
// type information.
type BindRow struct {
	Name  uint32
	Span  SpanRow
	Fn    uint32
	Scope uint32
	Type  uint32
}

// StmtRow is one statement. Which columns are meaningful depends on Kind;
// unused columns are zero.
type StmtRow struct {
	Kind  uint8
	Span  SpanRow
	Stmts []uint32 // block children
	Bind  uint32   // let/assign target, store object
	Name  uint32   // store field, global-store slot
	Value uint32   // let/assign/store/global-store/return/expr value
	Cond  uint32   // if/while condition
	Then  uint32   // if then-branch, while body
	Else  uint32   // if else-branch
}

// FieldInitRow is one field initializer of a struct literal row.
type FieldInitRow struct {
	Name  uint32
	Value uint32
}

// ExprRow is one expression. As with StmtRow, Kind selects the columns.
type ExprRow struct {
	Kind    uint8
	Span    SpanRow
	Bind    uint32 // ident
	LitKind uint8  // literal
	Lit     uint32 // literal spelling
	Op      uint8  // unary/binary operator
	Operand uint32 // unary
	Left    uint32 // binary
	Right   uint32 // binary
	Callee  uint32 // call
	Args    []uint32
	Task    uint32 // spawn
	Type    uint32 // struct literal type name
	Inits   []FieldInitRow
	Target  uint32 // field/index target
	Name    uint32 // field name
	Index   uint32 // index expression
}

// Program is one complete document.
type Program struct {
	Schema  uint16
	Strings []string // index = string ID; index 0 is the empty string
	Types   []TypeRow
	Funcs   []FuncRow
	Binds   []BindRow
	Stmts   []StmtRow
	Exprs   []ExprRow
}
