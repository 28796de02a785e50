package source

import (
	"testing"
)

func TestInternerDedup(t *testing.T) {
	in := NewInterner()
	a := in.Intern("region")
	b := in.Intern("region")
	if a != b {
		t.Fatalf("expected identical IDs for identical strings, got %d and %d", a, b)
	}
	c := in.Intern("slot")
	if c == a {
		t.Fatalf("distinct strings share ID %d", c)
	}
	if got := in.MustLookup(a); got != "region" {
		t.Fatalf("lookup mismatch: got %q", got)
	}
}

func TestInternerEmptyString(t *testing.T) {
	in := NewInterner()
	if id := in.Intern(""); id != NoStringID {
		t.Fatalf("empty string should map to NoStringID, got %d", id)
	}
	if in.Len() != 1 {
		t.Fatalf("fresh interner should hold only the empty string, len=%d", in.Len())
	}
}

func TestInternerSnapshot(t *testing.T) {
	in := NewInterner()
	in.Intern("x")
	snap := in.Snapshot()
	in.Intern("y")
	if len(snap) != 2 {
		t.Fatalf("snapshot should be detached from later interning, len=%d", len(snap))
	}
}
