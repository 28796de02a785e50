package regionrt

import (
	"fmt"
	"sync"
	"sync/atomic"

	"seen/internal/regions"
)

// Manager creates and reclaims regions. It is safe for concurrent use: the
// manager lock guards only the lookup tables, while each region carries its
// own lock for its slot table, so allocations in different regions never
// contend with each other.
type Manager struct {
	nextID   atomic.Uint64
	cleanups atomic.Uint64

	mu     sync.RWMutex
	byID   map[RegionID]*Region
	byName map[string]RegionID
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		byID:   make(map[RegionID]*Region),
		byName: make(map[string]RegionID),
	}
}

// Create opens a new region under name. The name must not be held by an
// active region; a name freed by Cleanup may be reused, and the new region
// gets a fresh ID so references into the old one stay invalid.
func (m *Manager) Create(name string, kind regions.Kind) (*Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byName[name]; taken {
		return nil, fmt.Errorf("%q: %w", name, ErrDuplicateRegion)
	}
	r := newRegion(RegionID(m.nextID.Add(1)), name, kind)
	m.byID[r.id] = r
	m.byName[name] = r.id
	return r, nil
}

// Region returns the region for id, destroyed ones included. Reaped regions
// are gone for good.
func (m *Manager) Region(id RegionID) (*Region, error) {
	m.mu.RLock()
	r := m.byID[id]
	m.mu.RUnlock()
	if r == nil {
		return nil, ErrRegionNotFound
	}
	return r, nil
}

// Lookup returns the active region registered under name.
func (m *Manager) Lookup(name string) (*Region, error) {
	m.mu.RLock()
	id, ok := m.byName[name]
	r := m.byID[id]
	m.mu.RUnlock()
	if !ok || r == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrRegionNotFound)
	}
	return r, nil
}

// Allocate stores a copy of value in the region identified by id.
func (m *Manager) Allocate(id RegionID, value []byte) (Ref, error) {
	r, err := m.Region(id)
	if err != nil {
		return Ref{}, err
	}
	return r.Allocate(value)
}

// Get resolves ref to its backing bytes.
func (m *Manager) Get(ref Ref) ([]byte, error) {
	r, err := m.Region(ref.Region)
	if err != nil {
		return nil, err
	}
	return r.Get(ref)
}

// Valid reports whether ref currently resolves to a live allocation.
func (m *Manager) Valid(ref Ref) bool {
	_, err := m.Get(ref)
	return err == nil
}

// Cleanup reclaims every allocation in the region and frees its name for
// reuse. The region itself stays registered (so stale references keep
// failing deterministically) until Reap removes it. Cleaning an already
// destroyed region is a no-op, not an error.
func (m *Manager) Cleanup(id RegionID) error {
	m.mu.Lock()
	r := m.byID[id]
	if r == nil {
		m.mu.Unlock()
		return ErrRegionNotFound
	}
	if m.byName[r.name] == id {
		delete(m.byName, r.name)
	}
	m.mu.Unlock()

	if r.destroy() {
		m.cleanups.Add(1)
	}
	return nil
}

// Reap drops destroyed regions from the registry and returns how many were
// removed. References into reaped regions keep failing, now with
// ErrRegionNotFound: IDs are never reissued.
func (m *Manager) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.byID {
		if !r.Active() {
			delete(m.byID, id)
			n++
		}
	}
	return n
}

// Stats is an aggregate snapshot across all registered regions.
type Stats struct {
	ActiveRegions    int
	DestroyedRegions int
	LiveObjects      int
	LiveBytes        uint64
	TotalAllocations uint64
	TotalCleanups    uint64
}

// Stats aggregates every registered region's counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	snapshot := make([]*Region, 0, len(m.byID))
	for _, r := range m.byID {
		snapshot = append(snapshot, r)
	}
	m.mu.RUnlock()

	out := Stats{TotalCleanups: m.cleanups.Load()}
	for _, r := range snapshot {
		rs := r.Stats()
		if rs.Active {
			out.ActiveRegions++
		} else {
			out.DestroyedRegions++
		}
		out.LiveObjects += rs.LiveObjects
		out.LiveBytes += rs.LiveBytes
		out.TotalAllocations += rs.Allocations
	}
	return out
}

// Snapshot returns per-region stats for every registered region, in no
// particular order.
func (m *Manager) Snapshot() []RegionStats {
	m.mu.RLock()
	snapshot := make([]*Region, 0, len(m.byID))
	for _, r := range m.byID {
		snapshot = append(snapshot, r)
	}
	m.mu.RUnlock()

	out := make([]RegionStats, 0, len(snapshot))
	for _, r := range snapshot {
		out = append(out, r.Stats())
	}
	return out
}
