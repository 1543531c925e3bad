package democache

import (
	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/stats"
)

// Hierarchy is a two-level inclusive cache: every reference tries the L1
// first; on an L1 miss it falls through to L2. Every L1 access, hit or
// miss, is also reported to L2's stats.Engine as a child access, matching
// an inclusive hierarchy where the parent's "child hits" count traffic the
// child absorbed without the parent ever seeing an access for it.
type Hierarchy struct {
	L1 *Cache
	L2 *Cache
}

// NewHierarchy wires two caches, previously constructed with their own
// engines, into a two-level hierarchy.
func NewHierarchy(l1, l2 *Cache) *Hierarchy {
	return &Hierarchy{L1: l1, L2: l2}
}

// Access tries L1 first, falling through to L2 on an L1 miss, and reports
// every L1 access to L2's engine as a child access. It returns whether the
// reference hit anywhere in the hierarchy.
func (h *Hierarchy) Access(ref memref.Reference) bool {
	l1Hit := h.L1.Access(ref)
	h.L2.engine.ChildAccess(ref, l1Hit)
	if l1Hit {
		return true
	}
	return h.L2.Access(ref)
}

// Invalidate drops the block covering addr from both levels. L1's
// invalidation is inclusive-driven by the L2 eviction that triggered this
// call; L2's own invalidation is a coherence event.
func (h *Hierarchy) Invalidate(addr uint64) {
	h.L1.Invalidate(addr, stats.InvalidateInclusive)
	h.L2.Invalidate(addr, stats.InvalidateCoherence)
}

// Reset resets both levels.
func (h *Hierarchy) Reset() {
	h.L1.Reset()
	h.L2.Reset()
}
