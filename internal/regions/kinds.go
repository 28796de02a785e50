// Package regions assigns every binding a memory region and checks that the
// resulting lifetime dependencies are satisfiable. The input is the escape
// classification; the output is a Plan the runtime and later passes consume.
package regions

// Kind is the closed set of region lifetimes, ordered from shortest- to
// longest-lived.
type Kind uint8

const (
	// Stack regions die with the scope that created them.
	Stack Kind = iota
	// Heap regions outlive their creating scope and are reclaimed explicitly.
	Heap
	// ReturnBound regions live until the caller is done with the returned
	// value; the callee cannot reclaim them.
	ReturnBound
	// Shared regions are kept alive by every task holding a reference; they
	// end only when the last participant releases them.
	Shared
)

func (k Kind) String() string {
	switch k {
	case Stack:
		return "stack"
	case Heap:
		return "heap"
	case ReturnBound:
		return "return-bound"
	case Shared:
		return "shared"
	}
	return "unknown"
}

// rank orders kinds by lifetime. Equal rank means equal lifetime class.
func (k Kind) rank() int { return int(k) }

// Outlives reports whether a value placed in a k region is guaranteed to
// live at least as long as one placed in an other region.
func (k Kind) Outlives(other Kind) bool { return k.rank() >= other.rank() }

// CanFeed reports whether a value in a k region may be stored into a value
// living in an other region. Storing downward (into a shorter-lived region)
// is always fine; storing one step upward is fine because the planner
// promotes the stored value along with its new owner. A jump of two or more
// lifetime classes cannot be bridged by promotion and is a conflict.
func (k Kind) CanFeed(other Kind) bool {
	d := other.rank() - k.rank()
	return d <= 1
}
