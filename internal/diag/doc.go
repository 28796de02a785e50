// Package diag carries the diagnostic model shared by the static memory
// passes: severities, stable numeric codes, spans, and the Bag container the
// driver hands to each pass.
//
// Escape analysis and region inference report user-facing problems through a
// Reporter instead of returning errors; a Go error out of those passes means
// the input itself was malformed (an upstream compiler bug). BagReporter
// aggregates diagnostics into a Bag for later sorting and rendering.
package diag
