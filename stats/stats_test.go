package stats_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/stats"
)

func dataRef(addr, pc uint64) memref.Reference {
	return memref.Reference{Kind: memref.KindDataRead, Addr: addr, PC: pc, Size: 4}
}

var _ = Describe("Engine", func() {
	It("rejects a block size that is not a power of two", func() {
		_, err := stats.New(48)
		Expect(err).To(MatchError(stats.ErrConfig))
	})

	It("counts hits and misses summing to the number of accesses", func() {
		e, err := stats.New(64)
		Expect(err).NotTo(HaveOccurred())

		e.Access(dataRef(0x1000, 0), false)
		e.Access(dataRef(0x2000, 0), false)
		e.Access(dataRef(0x1000, 0), true)

		got := e.Stats()
		Expect(got.Hits + got.Misses).To(Equal(uint64(3)))
	})

	It("matches scenario A: two accesses in one block are one compulsory miss", func() {
		e, _ := stats.New(64)
		e.Access(dataRef(0x1000, 0), false)
		e.Access(dataRef(0x1004, 0), false)
		e.Access(dataRef(0x1040, 0), false)
		e.Access(dataRef(0x1000, 0), true)

		got := e.Stats()
		Expect(got.Misses).To(Equal(uint64(3)))
		Expect(got.Hits).To(Equal(uint64(1)))
		Expect(got.CompulsoryMisses).To(Equal(uint64(2)))
	})

	It("counts zero misses and zero compulsory misses for an all-hit sequence", func() {
		e, _ := stats.New(64)
		e.Access(dataRef(0x1000, 0), true)
		e.Access(dataRef(0x1000, 0), true)

		got := e.Stats()
		Expect(got.Misses).To(BeZero())
		Expect(got.CompulsoryMisses).To(BeZero())
	})

	It("matches scenario C: invalidation counters are disjoint and sum to the total", func() {
		e, _ := stats.New(64)
		e.Invalidate(stats.InvalidateInclusive)
		e.Invalidate(stats.InvalidateCoherence)
		e.Invalidate(stats.InvalidateCoherence)

		got := e.Stats()
		Expect(got.InclusiveInvalidates).To(Equal(uint64(1)))
		Expect(got.CoherenceInvalidates).To(Equal(uint64(2)))
	})

	It("emits both invalidation labels for a coherent cache's report", func() {
		e, _ := stats.New(64, stats.WithCoherent())
		e.Invalidate(stats.InvalidateInclusive)
		e.Invalidate(stats.InvalidateCoherence)
		e.Invalidate(stats.InvalidateCoherence)

		var buf bytes.Buffer
		Expect(e.PrintStats(&buf, "", 0)).To(Succeed())
		out := buf.String()
		Expect(out).To(ContainSubstring("Parent invalidations:"))
		Expect(out).To(ContainSubstring("Write invalidations:"))
	})

	It("snapshots hits/misses into the at-reset twins and zeros the live counters on Reset, leaving the compulsory set untouched", func() {
		e, _ := stats.New(64)
		e.Access(dataRef(0x1000, 0), false)
		e.Access(dataRef(0x1000, 0), true)
		before := e.Stats()

		e.Reset()
		after := e.Stats()

		Expect(after.HitsAtReset).To(Equal(before.Hits))
		Expect(after.MissesAtReset).To(Equal(before.Misses))
		Expect(after.Hits).To(BeZero())
		Expect(after.Misses).To(BeZero())
		Expect(after.CompulsoryMisses).To(BeZero())

		// A repeat miss on the already-seen block must be found by the
		// compulsory detector: the compulsory set itself survives Reset.
		e.Access(dataRef(0x1000, 0), false)
		Expect(e.Stats().CompulsoryMisses).To(BeZero())
	})

	It("increments child hits only on a hit, leaving misses to the owning access", func() {
		e, _ := stats.New(64)
		e.ChildAccess(dataRef(0x1000, 0), true)
		e.ChildAccess(dataRef(0x2000, 0), false)

		Expect(e.Stats().ChildHits).To(Equal(uint64(1)))
	})

	It("matches scenario D: the miss-dump sink gets exactly one CSV line per miss", func() {
		path := filepath.Join(GinkgoT().TempDir(), "misses.csv")
		e, err := stats.New(64, stats.WithMissDumpPath(path), stats.WithMissDumpCompression(false))
		Expect(err).NotTo(HaveOccurred())

		e.Access(memref.Reference{Kind: memref.KindDataRead, PC: 0x400abc, Addr: 0xdead00, Size: 4}, false)
		e.Access(memref.Reference{Kind: memref.KindDataRead, PC: 0x400abc, Addr: 0xdead40, Size: 4}, false)
		Expect(e.Close()).To(Succeed())

		got, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("0x400abc,0xdead00\n0x400abc,0xdead40\n"))
	})

	It("matches scenario E: the miss histogram excludes instruction misses", func() {
		e, _ := stats.New(64, stats.WithRecordInstrAccessMisses(), stats.WithTopK(2))
		e.Access(dataRef(0x1000, 0x1), false)
		e.Access(dataRef(0x2000, 0x1), false)
		e.Access(dataRef(0x3000, 0x1), false)
		e.Access(dataRef(0x4000, 0x2), false)
		e.Access(memref.Reference{Kind: memref.KindInstrFetch, Addr: 0x3, PC: 0x3, Size: 4}, false)

		var buf bytes.Buffer
		Expect(e.PrintStats(&buf, "", 0)).To(Succeed())
		out := buf.String()
		Expect(out).To(ContainSubstring("0x1"))
		Expect(out).To(ContainSubstring("0x2"))
		Expect(out).NotTo(ContainSubstring("0x3"))
	})

	It("reports an unknown metric name as zero", func() {
		e, _ := stats.New(64)
		Expect(e.GetMetric("NotAMetric")).To(BeZero())
	})

	It("reports a known metric by name", func() {
		e, _ := stats.New(64)
		e.Access(dataRef(0x1000, 0), true)
		Expect(e.GetMetric("Hits")).To(Equal(uint64(1)))
	})

	It("skips miss-rate lines when their denominator is zero", func() {
		e, _ := stats.New(64)
		var buf bytes.Buffer
		Expect(e.PrintStats(&buf, "", 0)).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("Miss rate"))
	})

	It("stays ok when no miss-dump is configured", func() {
		e, _ := stats.New(64)
		Expect(e.IsOk()).To(BeTrue())
	})

	It("degrades but stays live when the miss-dump path cannot be opened", func() {
		e, err := stats.New(64, stats.WithMissDumpPath("/nonexistent-dir/misses.csv"))
		Expect(err).NotTo(HaveOccurred())
		Expect(e.IsOk()).To(BeFalse())

		// Still fully usable.
		e.Access(dataRef(0x1000, 0), false)
		Expect(e.Stats().Misses).To(Equal(uint64(1)))
	})
})
