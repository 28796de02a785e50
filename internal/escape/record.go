// Package escape classifies how each local binding can leave its defining
// scope. The classification is structural: one walk over the function body,
// no dataflow fixed point, because escape here is a property of where a
// binding's value syntactically flows.
package escape

import (
	"seen/internal/hir"
	"seen/internal/source"
)

// Kind is the closed set of escape classifications.
type Kind uint8

const (
	// NonEscaping values never leave their lexical scope.
	NonEscaping Kind = iota
	// ReturnEscape values leave the function through a return expression.
	ReturnEscape
	// GlobalEscape values are stored into program-lifetime storage or
	// passed to a callee that retains its arguments.
	GlobalEscape
	// SharedEscape values are captured by a concurrently spawned task;
	// their lifetime is bounded by the longest-lived participant.
	SharedEscape
)

func (k Kind) String() string {
	switch k {
	case NonEscaping:
		return "non-escaping"
	case ReturnEscape:
		return "return-escape"
	case GlobalEscape:
		return "global-escape"
	case SharedEscape:
		return "shared-escape"
	}
	return "unknown"
}

// Outranks reports whether k imposes a stricter lifetime requirement than
// other. Sharing across tasks outranks global storage outranks returning.
func (k Kind) Outranks(other Kind) bool { return k > other }

// Record is the classification of one binding.
type Record struct {
	Bind hir.BindID
	Kind Kind
	// Scope is the block that introduced the binding (NoStmtID for
	// parameters).
	Scope hir.StmtID
	// Site is the expression that forced the strictest classification;
	// zero for non-escaping bindings.
	Site source.Span
}

// Result holds one classification per binding of one function, in
// introduction order.
type Result struct {
	fn      hir.FuncID
	records []Record
	index   map[hir.BindID]int
}

// Fn returns the analyzed function.
func (r *Result) Fn() hir.FuncID { return r.fn }

// Records returns all classifications in introduction order. The slice
// aliases internal storage; do not modify it.
func (r *Result) Records() []Record {
	if r == nil {
		return nil
	}
	return r.records
}

// Record returns the classification for bind.
func (r *Result) Record(bind hir.BindID) (Record, bool) {
	if r == nil {
		return Record{}, false
	}
	i, ok := r.index[bind]
	if !ok {
		return Record{}, false
	}
	return r.records[i], true
}

// Kind returns the escape kind for bind; unknown bindings read as
// NonEscaping.
func (r *Result) Kind(bind hir.BindID) Kind {
	rec, ok := r.Record(bind)
	if !ok {
		return NonEscaping
	}
	return rec.Kind
}

// HasEscaping reports whether bind escapes its scope in any way.
func (r *Result) HasEscaping(bind hir.BindID) bool {
	return r.Kind(bind) != NonEscaping
}
