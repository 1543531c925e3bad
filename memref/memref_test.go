package memref_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/minglechen/dynamorio/memref"
)

var _ = Describe("Kind", func() {
	It("classifies instruction fetches", func() {
		Expect(memref.KindInstrFetch.IsInstr()).To(BeTrue())
		Expect(memref.KindDataRead.IsInstr()).To(BeFalse())
	})

	It("classifies prefetches", func() {
		Expect(memref.KindPrefetch.IsPrefetch()).To(BeTrue())
		Expect(memref.KindPrefetchInstr.IsPrefetch()).To(BeTrue())
		Expect(memref.KindDataRead.IsPrefetch()).To(BeFalse())
	})
})

var _ = Describe("DecodeTraceLine", func() {
	It("parses a hex data-read line", func() {
		ref, err := memref.DecodeTraceLine("data_read,0x1000,0x400abc,8")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Kind).To(Equal(memref.KindDataRead))
		Expect(ref.Addr).To(Equal(uint64(0x1000)))
		Expect(ref.PC).To(Equal(uint64(0x400abc)))
		Expect(ref.Size).To(Equal(uint64(8)))
	})

	It("parses decimal fields", func() {
		ref, err := memref.DecodeTraceLine("instr_fetch,4096,4096,4")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Addr).To(Equal(uint64(4096)))
	})

	It("rejects malformed lines", func() {
		_, err := memref.DecodeTraceLine("data_read,0x1000,0x400abc")
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown kinds", func() {
		_, err := memref.DecodeTraceLine("bogus,0x1,0x1,1")
		Expect(err).To(HaveOccurred())
	})
})
