package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"seen/internal/hir"
	"seen/internal/regions"
)

var (
	okColor       = color.New(color.FgGreen, color.Bold)
	conflictColor = color.New(color.FgRed, color.Bold)
)

// PlanSummary renders one function's region plan:
//
//	fn work: 3 stack, 1 heap, 1 return-bound, 0 shared [OK|CONFLICTS]
//
// and, when verbose, one line per binding placement and per conflict edge.
func PlanSummary(w io.Writer, b *hir.Builder, plan *regions.Plan, opts Options) {
	if plan == nil {
		return
	}
	counts := plan.CountByKind()
	verdict := "OK"
	if !plan.Satisfiable() {
		verdict = "CONFLICTS"
	}
	if opts.Color {
		if plan.Satisfiable() {
			verdict = okColor.Sprint(verdict)
		} else {
			verdict = conflictColor.Sprint(verdict)
		}
	}
	fmt.Fprintf(w, "fn %s: %d stack, %d heap, %d return-bound, %d shared [%s]\n",
		b.FuncName(plan.Fn()),
		counts[regions.Stack], counts[regions.Heap],
		counts[regions.ReturnBound], counts[regions.Shared],
		verdict)

	if !opts.Verbose {
		return
	}
	for _, a := range plan.Assignments() {
		promoted := ""
		if a.Promoted {
			promoted = " (promoted)"
		}
		fmt.Fprintf(w, "  %-16s %s%s\n", b.BindName(a.Bind), a.Kind, promoted)
	}
	for _, c := range plan.Conflicts() {
		fmt.Fprintf(w, "  conflict: %s (%s) -> %s (%s) at %s\n",
			b.BindName(c.From), c.FromKind, b.BindName(c.To), c.ToKind, c.Site)
	}
}
