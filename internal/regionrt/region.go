package regionrt

import (
	"sync"
	"sync/atomic"

	"fortio.org/safecast"

	"seen/internal/regions"
)

const (
	stateActive uint32 = iota
	stateDestroyed
)

// Region owns a set of allocations that are reclaimed together. Validity is
// a generation compare: cleanup bumps the generation once, which strands
// every outstanding reference at the old value. A destroyed region never
// becomes active again.
type Region struct {
	id   RegionID
	name string
	kind regions.Kind

	state      atomic.Uint32
	generation atomic.Uint32

	mu     sync.RWMutex
	slots  []slot
	bytes  uint64
	allocs uint64
}

type slot struct {
	data       []byte
	generation uint32
}

func newRegion(id RegionID, name string, kind regions.Kind) *Region {
	return &Region{id: id, name: name, kind: kind}
}

// ID returns the manager-issued identifier.
func (r *Region) ID() RegionID { return r.id }

// Name returns the creation name.
func (r *Region) Name() string { return r.name }

// Kind returns the region's lifetime class.
func (r *Region) Kind() regions.Kind { return r.kind }

// Active reports whether the region still accepts allocations.
func (r *Region) Active() bool { return r.state.Load() == stateActive }

// Generation returns the current generation counter.
func (r *Region) Generation() uint32 { return r.generation.Load() }

// Allocate stores a copy of value in a fresh slot and returns a reference
// to it. Allocation after cleanup fails with ErrRegionDestroyed.
func (r *Region) Allocate(value []byte) (Ref, error) {
	if !r.Active() {
		return Ref{}, ErrRegionDestroyed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Cleanup may have won the race between the check above and the lock.
	if !r.Active() {
		return Ref{}, ErrRegionDestroyed
	}
	gen := r.generation.Load()
	stored := make([]byte, len(value))
	copy(stored, value)
	r.slots = append(r.slots, slot{data: stored, generation: gen})
	r.bytes += uint64(len(value))
	r.allocs++
	obj := ObjectID(safecast.MustConvert[uint32](len(r.slots)))
	return Ref{Region: r.id, Object: obj, Generation: gen}, nil
}

// Get resolves ref to its backing bytes. A reference outlived by a cleanup
// fails every subsequent Get, no matter how many times it is retried.
func (r *Region) Get(ref Ref) ([]byte, error) {
	if ref.Region != r.id {
		return nil, ErrRegionNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.Active() {
		return nil, ErrRegionDestroyed
	}
	if ref.Generation != r.generation.Load() {
		return nil, ErrStaleRef
	}
	idx := int(ref.Object) - 1
	if idx < 0 || idx >= len(r.slots) {
		return nil, ErrStaleRef
	}
	s := r.slots[idx]
	if s.generation != ref.Generation {
		return nil, ErrStaleRef
	}
	return s.data, nil
}

// Valid reports whether ref still resolves inside this region. It is total:
// a stale or foreign reference reads as invalid, never as a failure.
func (r *Region) Valid(ref Ref) bool {
	_, err := r.Get(ref)
	return err == nil
}

// destroy reclaims every allocation and permanently invalidates the region.
// Returns false when the region was already destroyed.
func (r *Region) destroy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.CompareAndSwap(stateActive, stateDestroyed) {
		return false
	}
	// Bump first: any reference snapshotted before this point is stranded
	// at the old generation.
	r.generation.Add(1)
	r.slots = nil
	r.bytes = 0
	return true
}

// RegionStats is a point-in-time snapshot of one region.
type RegionStats struct {
	ID          RegionID
	Name        string
	Kind        regions.Kind
	Active      bool
	Generation  uint32
	LiveObjects int
	LiveBytes   uint64
	Allocations uint64
}

// Stats snapshots the region's counters.
func (r *Region) Stats() RegionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegionStats{
		ID:          r.id,
		Name:        r.name,
		Kind:        r.kind,
		Active:      r.Active(),
		Generation:  r.generation.Load(),
		LiveObjects: len(r.slots),
		LiveBytes:   r.bytes,
		Allocations: r.allocs,
	}
}
