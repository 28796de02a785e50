// Package regionrt is the runtime half of the region system: a thread-safe
// manager that creates regions, serves allocations inside them, and reclaims
// them wholesale. Every allocation is reachable only through a generational
// reference, so use-after-cleanup is detected instead of reading freed
// memory.
package regionrt

import "fmt"

// RegionID identifies one region for the lifetime of a manager. IDs are
// never reused, so a reference into a reclaimed region can never
// accidentally name a newer region of the same name.
type RegionID uint64

// NoRegionID marks the absence of a region.
const NoRegionID RegionID = 0

// IsValid reports whether the ID was issued by a manager.
func (id RegionID) IsValid() bool { return id != NoRegionID }

// ObjectID identifies one allocation inside its region.
type ObjectID uint32

// NoObjectID marks the absence of an object.
const NoObjectID ObjectID = 0

// IsValid reports whether the ID refers to an allocation.
func (id ObjectID) IsValid() bool { return id != NoObjectID }

// Ref is a generational reference to one allocation. It stays cheap to copy
// and cheap to validate: a region lookup plus two generation compares.
type Ref struct {
	Region     RegionID
	Object     ObjectID
	Generation uint32
}

// IsZero reports whether the reference points at nothing.
func (r Ref) IsZero() bool { return !r.Region.IsValid() || !r.Object.IsValid() }

func (r Ref) String() string {
	return fmt.Sprintf("ref(%d/%d@%d)", r.Region, r.Object, r.Generation)
}
