// Package testkit holds cross-package checks shared by tests.
package testkit

import (
	"fmt"

	"seen/internal/escape"
	"seen/internal/hir"
	"seen/internal/regions"
)

// CheckPlanInvariants runs the structural invariants every region plan must
// hold, conflicted or not:
// 1) exactly one assignment per binding of the function, in introduction order
// 2) every assignment's kind is at least what its escape classification demands
// 3) every edge endpoint has an assignment, and edge kinds match the assignments
// 4) every conflict is an edge that actually violates the feed rule
func CheckPlanInvariants(b *hir.Builder, plan *regions.Plan, esc *escape.Result) error {
	if b == nil || plan == nil || esc == nil {
		return fmt.Errorf("nil builder, plan, or escape result")
	}
	if plan.Fn() != esc.Fn() {
		return fmt.Errorf("plan is for fn %d, escape result for fn %d", plan.Fn(), esc.Fn())
	}

	// 1) one assignment per record, same order
	recs := esc.Records()
	assignments := plan.Assignments()
	if len(assignments) != len(recs) {
		return fmt.Errorf("assignment count %d != binding count %d", len(assignments), len(recs))
	}
	seen := make(map[hir.BindID]bool, len(assignments))
	for i, a := range assignments {
		if a.Bind != recs[i].Bind {
			return fmt.Errorf("assignment %d is for bind %d, want %d", i, a.Bind, recs[i].Bind)
		}
		if seen[a.Bind] {
			return fmt.Errorf("bind %d assigned twice", a.Bind)
		}
		seen[a.Bind] = true

		// 2) placement honors the escape classification
		floor := minimumKind(a.Escape)
		if !a.Kind.Outlives(floor) {
			return fmt.Errorf("bind %d placed in %v, escape %v demands at least %v",
				a.Bind, a.Kind, a.Escape, floor)
		}
		if a.Escape != recs[i].Kind {
			return fmt.Errorf("bind %d records escape %v, analysis said %v", a.Bind, a.Escape, recs[i].Kind)
		}
	}

	// 3) edges reference assigned bindings with matching kinds
	for i, e := range plan.Edges() {
		fa, ok := plan.Assignment(e.From)
		if !ok {
			return fmt.Errorf("edge %d: source bind %d unassigned", i, e.From)
		}
		ta, ok := plan.Assignment(e.To)
		if !ok {
			return fmt.Errorf("edge %d: target bind %d unassigned", i, e.To)
		}
		if e.FromKind != fa.Kind || e.ToKind != ta.Kind {
			return fmt.Errorf("edge %d: kinds (%v->%v) disagree with assignments (%v->%v)",
				i, e.FromKind, e.ToKind, fa.Kind, ta.Kind)
		}
	}

	// 4) conflicts really violate the feed rule (cycle conflicts excepted:
	// their representative edge may be individually satisfiable, so only
	// check that it exists among the edges)
	for i, c := range plan.Conflicts() {
		found := false
		for _, e := range plan.Edges() {
			if e == c {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("conflict %d is not one of the plan's edges", i)
		}
	}
	if len(plan.Conflicts()) == 0 != plan.Satisfiable() {
		return fmt.Errorf("satisfiability disagrees with conflict count %d", len(plan.Conflicts()))
	}
	return nil
}

func minimumKind(k escape.Kind) regions.Kind {
	switch k {
	case escape.ReturnEscape:
		return regions.ReturnBound
	case escape.GlobalEscape:
		return regions.Heap
	case escape.SharedEscape:
		return regions.Shared
	}
	return regions.Stack
}
