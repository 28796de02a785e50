package diag

import (
	"fmt"
)

// Code is a stable numeric identifier for a diagnostic. Codes are grouped by
// the phase that emits them; gaps are reserved for future diagnostics so that
// published codes never shift.
type Code uint16

const (
	UnknownCode Code = 0

	// Escape analysis (33xx).
	EscInfo           Code = 3300
	EscUnknownBinding Code = 3301
	EscUnusedBinding  Code = 3302

	// Region inference (34xx).
	RegionInfo           Code = 3400
	RegionConflict       Code = 3401
	RegionOutlivesCycle  Code = 3402
	RegionUnplannedBind  Code = 3403
	RegionHeapPromotion  Code = 3404
	RegionSharedLifetime Code = 3405

	// Driver / IO (9xxx).
	IOInfo            Code = 9000
	IOLoadProgram     Code = 9001
	IOBadSchema       Code = 9002
	IODanglingNode    Code = 9003
	IOPlanCacheBroken Code = 9004
)

func (c Code) String() string {
	return fmt.Sprintf("SEEN%04d", uint16(c))
}
