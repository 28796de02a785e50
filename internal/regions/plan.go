package regions

import (
	"seen/internal/escape"
	"seen/internal/hir"
	"seen/internal/source"
)

// Assignment places one binding in a region.
type Assignment struct {
	Bind hir.BindID
	Kind Kind
	// Escape is the classification that drove the placement.
	Escape escape.Kind
	// Promoted marks a binding moved to Heap for its type's sake rather
	// than for how it escapes.
	Promoted bool
	Span     source.Span
}

// Edge records a lifetime dependency: the value bound to From is stored
// where the value bound to To can reach it, so From must outlive To.
type Edge struct {
	From hir.BindID
	To   hir.BindID
	// FromKind and ToKind are the region kinds at edge-creation time.
	FromKind Kind
	ToKind   Kind
	Site     source.Span
}

// Plan is the region assignment for one function: a placement per binding
// plus the outlives edges between them. A plan with conflicts still carries
// every assignment so tooling can show the full picture.
type Plan struct {
	fn          hir.FuncID
	assignments []Assignment
	index       map[hir.BindID]int
	edges       []Edge
	conflicts   []Edge
}

// RestorePlan reassembles a plan from previously computed parts, for cache
// hits. The caller owns the slices afterwards.
func RestorePlan(fn hir.FuncID, assignments []Assignment, edges, conflicts []Edge) *Plan {
	p := &Plan{
		fn:          fn,
		assignments: assignments,
		index:       make(map[hir.BindID]int, len(assignments)),
		edges:       edges,
		conflicts:   conflicts,
	}
	for i, a := range assignments {
		p.index[a.Bind] = i
	}
	return p
}

// Fn returns the planned function.
func (p *Plan) Fn() hir.FuncID { return p.fn }

// Assignments returns every placement in binding-introduction order. The
// slice aliases internal storage; do not modify it.
func (p *Plan) Assignments() []Assignment {
	if p == nil {
		return nil
	}
	return p.assignments
}

// Assignment returns the placement for bind.
func (p *Plan) Assignment(bind hir.BindID) (Assignment, bool) {
	if p == nil {
		return Assignment{}, false
	}
	i, ok := p.index[bind]
	if !ok {
		return Assignment{}, false
	}
	return p.assignments[i], true
}

// KindOf returns the region kind for bind; unknown bindings read as Stack.
func (p *Plan) KindOf(bind hir.BindID) Kind {
	a, ok := p.Assignment(bind)
	if !ok {
		return Stack
	}
	return a.Kind
}

// Edges returns every outlives dependency in statement order.
func (p *Plan) Edges() []Edge {
	if p == nil {
		return nil
	}
	return p.edges
}

// Conflicts returns the edges that cannot be satisfied.
func (p *Plan) Conflicts() []Edge {
	if p == nil {
		return nil
	}
	return p.conflicts
}

// Satisfiable reports whether every lifetime dependency holds.
func (p *Plan) Satisfiable() bool { return p != nil && len(p.conflicts) == 0 }

// CountByKind tallies placements per region kind.
func (p *Plan) CountByKind() map[Kind]int {
	out := make(map[Kind]int, 4)
	for _, a := range p.Assignments() {
		out[a.Kind]++
	}
	return out
}
