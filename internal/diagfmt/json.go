package diagfmt

import (
	"encoding/json"
	"io"

	"seen/internal/diag"
	"seen/internal/hir"
	"seen/internal/regions"
)

// DiagnosticOutput is the JSON shape of one diagnostic.
type DiagnosticOutput struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Span     string       `json:"span"`
	Message  string       `json:"message"`
	Notes    []NoteOutput `json:"notes,omitempty"`
}

// NoteOutput is the JSON shape of one note.
type NoteOutput struct {
	Span    string `json:"span"`
	Message string `json:"message"`
}

// PlacementOutput is the JSON shape of one binding placement.
type PlacementOutput struct {
	Binding  string `json:"binding"`
	Region   string `json:"region"`
	Escape   string `json:"escape"`
	Promoted bool   `json:"promoted,omitempty"`
}

// ConflictOutput is the JSON shape of one unsatisfiable edge.
type ConflictOutput struct {
	From       string `json:"from"`
	FromRegion string `json:"from_region"`
	To         string `json:"to"`
	ToRegion   string `json:"to_region"`
	Site       string `json:"site"`
}

// PlanOutput is the JSON shape of one function's result.
type PlanOutput struct {
	Function    string             `json:"function"`
	Satisfiable bool               `json:"satisfiable"`
	Cached      bool               `json:"cached,omitempty"`
	Placements  []PlacementOutput  `json:"placements,omitempty"`
	Conflicts   []ConflictOutput   `json:"conflicts,omitempty"`
	Diagnostics []DiagnosticOutput `json:"diagnostics,omitempty"`
}

// BuildPlanOutput flattens one function's plan and diagnostics.
func BuildPlanOutput(b *hir.Builder, plan *regions.Plan, bag *diag.Bag, cached bool) PlanOutput {
	out := PlanOutput{Cached: cached}
	if plan != nil {
		out.Function = b.FuncName(plan.Fn())
		out.Satisfiable = plan.Satisfiable()
		for _, a := range plan.Assignments() {
			out.Placements = append(out.Placements, PlacementOutput{
				Binding:  b.BindName(a.Bind),
				Region:   a.Kind.String(),
				Escape:   a.Escape.String(),
				Promoted: a.Promoted,
			})
		}
		for _, c := range plan.Conflicts() {
			out.Conflicts = append(out.Conflicts, ConflictOutput{
				From:       b.BindName(c.From),
				FromRegion: c.FromKind.String(),
				To:         b.BindName(c.To),
				ToRegion:   c.ToKind.String(),
				Site:       c.Site.String(),
			})
		}
	}
	if bag != nil {
		for _, d := range bag.Items() {
			row := DiagnosticOutput{
				Severity: d.Severity.String(),
				Code:     d.Code.String(),
				Span:     d.Primary.String(),
				Message:  d.Message,
			}
			for _, n := range d.Notes {
				row.Notes = append(row.Notes, NoteOutput{Span: n.Span.String(), Message: n.Msg})
			}
			out.Diagnostics = append(out.Diagnostics, row)
		}
	}
	return out
}

// JSON writes a list of per-function outputs as indented JSON.
func JSON(w io.Writer, outputs []PlanOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outputs)
}
