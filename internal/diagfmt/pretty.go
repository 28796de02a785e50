package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"seen/internal/diag"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	noteColor = color.New(color.Faint)
)

// Pretty renders a bag's diagnostics one per line:
//
//	<file>:<start>-<end>: <SEV> <CODE>: <message>
//	    note: <note message>
//
// The bag is expected to be sorted already.
func Pretty(w io.Writer, bag *diag.Bag, opts Options) {
	if bag == nil {
		return
	}
	for _, d := range bag.Items() {
		if d.Severity == diag.SevInfo && !opts.Verbose {
			continue
		}
		sev := d.Severity.String()
		if opts.Color {
			sev = severityColor(d.Severity).Sprint(sev)
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", d.Primary, sev, d.Code, d.Message)
		for _, n := range d.Notes {
			line := fmt.Sprintf("    note: %s (%s)", n.Msg, n.Span)
			if opts.Color {
				line = noteColor.Sprint(line)
			}
			fmt.Fprintln(w, line)
		}
	}
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	}
	return infoColor
}
