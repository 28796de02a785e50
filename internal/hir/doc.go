// Package hir holds the typed program representation the memory passes walk.
//
// The front end (parser + type checker) hands the memory core fully resolved
// function bodies: every identifier refers to a binding by ID, every call
// names its callee, and no source text survives past this boundary. Nodes
// live in dense 1-based arenas; index 0 is the "no node" sentinel on every ID
// type, mirroring how the rest of the toolchain stores its trees.
package hir
