// Package diagfmt renders diagnostics and region plans for the CLI, in
// plain text or JSON.
package diagfmt

// Options control rendering.
type Options struct {
	// Color enables ANSI colors in the pretty output.
	Color bool
	// Verbose includes info-severity diagnostics and per-binding
	// placements that would otherwise be elided.
	Verbose bool
}
