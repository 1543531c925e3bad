package democache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/minglechen/dynamorio/democache"
	"github.com/minglechen/dynamorio/stats"
)

func newTestHierarchy() *democache.Hierarchy {
	l1Engine, err := stats.New(64)
	Expect(err).NotTo(HaveOccurred())
	l2Engine, err := stats.New(64)
	Expect(err).NotTo(HaveOccurred())

	l1 := democache.New(democache.Config{Size: 4 * 1024, Associativity: 4, BlockSize: 64}, l1Engine)
	l2 := democache.New(democache.Config{Size: 16 * 1024, Associativity: 8, BlockSize: 64}, l2Engine)
	return democache.NewHierarchy(l1, l2)
}

var _ = Describe("Hierarchy", func() {
	var h *democache.Hierarchy

	BeforeEach(func() {
		h = newTestHierarchy()
	})

	It("falls through to L2 on an L1 miss", func() {
		Expect(h.Access(readRef(0x1000))).To(BeFalse())
		Expect(h.L1.Engine().Stats().Misses).To(Equal(uint64(1)))
		Expect(h.L2.Engine().Stats().Misses).To(Equal(uint64(1)))
	})

	It("records an L1 hit at L2 as a child hit without touching L2's own access count", func() {
		h.Access(readRef(0x1000)) // L1 miss, L2 miss
		h.Access(readRef(0x1000)) // L1 hit

		l2 := h.L2.Engine().Stats()
		Expect(l2.ChildHits).To(Equal(uint64(1)))
		Expect(l2.Hits + l2.Misses).To(Equal(uint64(1)))
	})

	It("invalidates a line from both levels, inclusively at L1 and by coherence at L2", func() {
		h.Access(readRef(0x1000))
		h.Invalidate(0x1000)

		Expect(h.L1.Engine().Stats().InclusiveInvalidates).To(Equal(uint64(1)))
		Expect(h.L2.Engine().Stats().CoherenceInvalidates).To(Equal(uint64(1)))
		Expect(h.Access(readRef(0x1000))).To(BeFalse())
	})

	It("resets both levels together", func() {
		h.Access(readRef(0x1000))
		h.Reset()

		Expect(h.L1.Engine().Stats().Hits + h.L1.Engine().Stats().Misses).To(BeZero())
		Expect(h.L2.Engine().Stats().Hits + h.L2.Engine().Stats().Misses).To(BeZero())
	})
})
