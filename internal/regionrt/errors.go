package regionrt

import "errors"

var (
	// ErrDuplicateRegion is returned when creating a region whose name is
	// already held by an active region.
	ErrDuplicateRegion = errors.New("regionrt: region name already active")
	// ErrRegionNotFound is returned for an ID the manager has never issued
	// or has already reaped.
	ErrRegionNotFound = errors.New("regionrt: region not found")
	// ErrRegionDestroyed is returned when operating on a cleaned-up region.
	ErrRegionDestroyed = errors.New("regionrt: region destroyed")
	// ErrStaleRef is returned when a reference's generation no longer
	// matches its region. Stale references stay stale forever.
	ErrStaleRef = errors.New("regionrt: stale reference")
)
