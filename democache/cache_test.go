package democache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/minglechen/dynamorio/democache"
	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/stats"
)

func newTestCache() *democache.Cache {
	engine, err := stats.New(64)
	Expect(err).NotTo(HaveOccurred())
	// 4KB, 4-way, 64B lines: 16 sets.
	config := democache.Config{Size: 4 * 1024, Associativity: 4, BlockSize: 64}
	return democache.New(config, engine)
}

func readRef(addr uint64) memref.Reference {
	return memref.Reference{Kind: memref.KindDataRead, Addr: addr, Size: 8}
}

func writeRef(addr uint64) memref.Reference {
	return memref.Reference{Kind: memref.KindDataWrite, Addr: addr, Size: 8}
}

var _ = Describe("Cache", func() {
	var c *democache.Cache

	BeforeEach(func() {
		c = newTestCache()
	})

	It("misses on a cold line and hits on re-access", func() {
		Expect(c.Access(readRef(0x1000))).To(BeFalse())
		Expect(c.Access(readRef(0x1000))).To(BeTrue())

		got := c.Engine().Stats()
		Expect(got.Hits).To(Equal(uint64(1)))
		Expect(got.Misses).To(Equal(uint64(1)))
	})

	It("hits on a different address within the same line", func() {
		c.Access(readRef(0x1000))
		Expect(c.Access(readRef(0x1004))).To(BeTrue())
	})

	It("write-allocates on a miss", func() {
		Expect(c.Access(writeRef(0x2000))).To(BeFalse())
		Expect(c.Access(readRef(0x2000))).To(BeTrue())
	})

	It("evicts the LRU way when a set fills up", func() {
		// 4KB / (4 ways * 64B) = 16 sets; these four addresses all map to
		// set 0 (stride 16*64 = 1024).
		c.Access(writeRef(0x0000))
		c.Access(writeRef(0x0400))
		c.Access(writeRef(0x0800))
		c.Access(writeRef(0x0C00))

		Expect(c.Access(readRef(0x0000))).To(BeTrue())
		Expect(c.Access(readRef(0x0400))).To(BeTrue())
		Expect(c.Access(readRef(0x0800))).To(BeTrue())
		Expect(c.Access(readRef(0x0C00))).To(BeTrue())

		// A fifth access to the same set evicts the LRU way (0x0000) and
		// misses.
		Expect(c.Access(readRef(0x1000))).To(BeFalse())
		Expect(c.Access(readRef(0x0000))).To(BeFalse())
	})

	It("drops a line on Invalidate and counts a coherence invalidation", func() {
		c.Access(readRef(0x1000))
		c.Invalidate(0x1000, stats.InvalidateCoherence)

		Expect(c.Access(readRef(0x1000))).To(BeFalse())
		Expect(c.Engine().Stats().CoherenceInvalidates).To(Equal(uint64(1)))
	})

	It("is a no-op to invalidate an address that was never cached", func() {
		c.Invalidate(0x9000, stats.InvalidateCoherence)
		Expect(c.Engine().Stats().CoherenceInvalidates).To(BeZero())
	})

	It("resets the directory and the wired engine together", func() {
		c.Access(readRef(0x1000))
		c.Access(readRef(0x1000))
		c.Reset()

		Expect(c.Engine().Stats().Hits).To(BeZero())
		Expect(c.Access(readRef(0x1000))).To(BeFalse())
	})
})
