package regionrt

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"seen/internal/regions"
)

func TestAllocateAndGetRoundTrip(t *testing.T) {
	m := NewManager()
	r, err := m.Create("frame", regions.Stack)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	value := []byte("hello region")
	ref, err := m.Allocate(r.ID(), value)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !m.Valid(ref) {
		t.Fatal("fresh reference reads as invalid")
	}
	data, err := m.Get(ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(data, value) {
		t.Fatalf("Get: got %q, want %q", data, value)
	}
	// The slot holds its own copy; mutating the source buffer afterwards
	// must not be visible through the reference.
	value[0] = 'H'
	again, err := m.Get(ref)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if again[0] != 'h' {
		t.Fatalf("stored value aliases the caller's buffer: %q", again)
	}
}

func TestDuplicateRegionName(t *testing.T) {
	m := NewManager()
	if _, err := m.Create("frame", regions.Stack); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := m.Create("frame", regions.Heap)
	if !errors.Is(err, ErrDuplicateRegion) {
		t.Fatalf("want ErrDuplicateRegion, got %v", err)
	}
}

func TestLookupUnknownName(t *testing.T) {
	m := NewManager()
	if _, err := m.Lookup("nope"); !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("want ErrRegionNotFound, got %v", err)
	}
}

func TestAllocateAfterCleanupFails(t *testing.T) {
	m := NewManager()
	r, _ := m.Create("frame", regions.Stack)
	if err := m.Cleanup(r.ID()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := m.Allocate(r.ID(), make([]byte, 8)); !errors.Is(err, ErrRegionDestroyed) {
		t.Fatalf("want ErrRegionDestroyed, got %v", err)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	m := NewManager()
	r, _ := m.Create("frame", regions.Stack)
	if err := m.Cleanup(r.ID()); err != nil {
		t.Fatalf("first Cleanup: %v", err)
	}
	if err := m.Cleanup(r.ID()); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
	if got := m.Stats().TotalCleanups; got != 1 {
		t.Fatalf("TotalCleanups: got %d, want 1", got)
	}
}

func TestCleanupUnknownRegion(t *testing.T) {
	m := NewManager()
	if err := m.Cleanup(RegionID(42)); !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("want ErrRegionNotFound, got %v", err)
	}
}

func TestStaleRefStaysInvalidForever(t *testing.T) {
	m := NewManager()
	r, _ := m.Create("frame", regions.Stack)
	ref, err := m.Allocate(r.ID(), make([]byte, 8))
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := m.Cleanup(r.ID()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	// No amount of retrying resurrects a reference into a cleaned region.
	for i := 0; i < 1000; i++ {
		if m.Valid(ref) {
			t.Fatalf("Valid #%d on a destroyed region", i)
		}
		if _, err := m.Get(ref); err == nil {
			t.Fatalf("Get #%d succeeded on a destroyed region", i)
		}
	}
}

func TestNameReuseDoesNotAliasOldRefs(t *testing.T) {
	m := NewManager()
	r1, _ := m.Create("frame", regions.Stack)
	oldRef, _ := m.Allocate(r1.ID(), []byte("old"))
	if err := m.Cleanup(r1.ID()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	r2, err := m.Create("frame", regions.Stack)
	if err != nil {
		t.Fatalf("Create after cleanup: %v", err)
	}
	if r2.ID() == r1.ID() {
		t.Fatal("region IDs must not be reused")
	}
	if _, err := m.Allocate(r2.ID(), []byte("new")); err != nil {
		t.Fatalf("Allocate in new region: %v", err)
	}
	if _, err := m.Get(oldRef); err == nil {
		t.Fatal("reference into the old region resolved against the new one")
	}
}

func TestReapRemovesDestroyedRegions(t *testing.T) {
	m := NewManager()
	kept, _ := m.Create("kept", regions.Heap)
	gone, _ := m.Create("gone", regions.Stack)
	ref, _ := m.Allocate(gone.ID(), make([]byte, 8))
	if err := m.Cleanup(gone.ID()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if n := m.Reap(); n != 1 {
		t.Fatalf("Reap: got %d, want 1", n)
	}
	if _, err := m.Get(ref); !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("want ErrRegionNotFound after reap, got %v", err)
	}
	if _, err := m.Region(kept.ID()); err != nil {
		t.Fatalf("active region reaped: %v", err)
	}
	if n := m.Reap(); n != 0 {
		t.Fatalf("second Reap: got %d, want 0", n)
	}
}

func TestStatsAggregation(t *testing.T) {
	m := NewManager()
	a, _ := m.Create("a", regions.Heap)
	c, _ := m.Create("c", regions.Shared)
	if _, err := m.Allocate(a.ID(), make([]byte, 10)); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := m.Allocate(a.ID(), make([]byte, 20)); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := m.Allocate(c.ID(), make([]byte, 5)); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := m.Cleanup(c.ID()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	got := m.Stats()
	want := Stats{
		ActiveRegions:    1,
		DestroyedRegions: 1,
		LiveObjects:      2,
		LiveBytes:        30,
		TotalAllocations: 3,
		TotalCleanups:    1,
	}
	if got != want {
		t.Fatalf("Stats: got %+v, want %+v", got, want)
	}
}

func TestConcurrentAllocations(t *testing.T) {
	const (
		workers = 8
		allocs  = 200
	)
	m := NewManager()
	shared, _ := m.Create("shared", regions.Shared)

	var wg sync.WaitGroup
	refs := make([][]Ref, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			own, err := m.Create(string(rune('a'+w)), regions.Heap)
			if err != nil {
				t.Errorf("worker %d Create: %v", w, err)
				return
			}
			mine := make([]Ref, 0, 2*allocs)
			for i := 0; i < allocs; i++ {
				r1, err := own.Allocate(make([]byte, 8))
				if err != nil {
					t.Errorf("worker %d own Allocate: %v", w, err)
					return
				}
				r2, err := shared.Allocate(make([]byte, 8))
				if err != nil {
					t.Errorf("worker %d shared Allocate: %v", w, err)
					return
				}
				mine = append(mine, r1, r2)
			}
			refs[w] = mine
		}(w)
	}
	wg.Wait()

	for w, mine := range refs {
		for _, ref := range mine {
			if _, err := m.Get(ref); err != nil {
				t.Fatalf("worker %d ref %v: %v", w, ref, err)
			}
		}
	}
	if got := m.Stats().TotalAllocations; got != workers*allocs*2 {
		t.Fatalf("TotalAllocations: got %d, want %d", got, workers*allocs*2)
	}
}

func TestGetRacingCleanup(t *testing.T) {
	m := NewManager()
	r, _ := m.Create("contested", regions.Heap)
	ref, err := m.Allocate(r.ID(), make([]byte, 8))
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 1000; j++ {
				// Either outcome is fine; what matters is that a
				// successful Get never returns reclaimed memory and a
				// failed one keeps failing.
				_, _ = m.Get(ref)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		if err := m.Cleanup(r.ID()); err != nil {
			t.Errorf("Cleanup: %v", err)
		}
	}()
	close(start)
	wg.Wait()

	if _, err := m.Get(ref); err == nil {
		t.Fatal("Get succeeded after cleanup finished")
	}
}
