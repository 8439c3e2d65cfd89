package frame

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Allocator", func() {
	var a *Allocator

	BeforeEach(func() {
		a = NewAllocator(4)
	})

	It("should hand out frames lowest first", func() {
		Expect(a.Find()).To(Equal(0))
		Expect(a.Find()).To(Equal(1))
		Expect(a.NumFree()).To(Equal(2))
		Expect(a.UsedFrames()).To(Equal([]int{0, 1}))
	})

	It("should return None when full", func() {
		for i := 0; i < 4; i++ {
			Expect(a.Find()).To(Equal(i))
		}

		Expect(a.Find()).To(Equal(None))
		Expect(a.NumFree()).To(Equal(0))
	})

	It("should reuse cleared frames", func() {
		for i := 0; i < 4; i++ {
			a.Find()
		}

		a.Clear(2)

		Expect(a.IsUsed(2)).To(BeFalse())
		Expect(a.Find()).To(Equal(2))
	})

	It("should panic on double free", func() {
		f := a.Find()
		a.Clear(f)

		Expect(func() { a.Clear(f) }).To(Panic())
	})

	It("should panic on out of range frames", func() {
		Expect(func() { a.IsUsed(4) }).To(Panic())
		Expect(func() { a.Clear(-1) }).To(Panic())
	})

	It("should dump the memory map", func() {
		a.Find()
		a.Find()

		Expect(a.String()).To(Equal("Bitmap set:\n0, 1\n"))
	})
})
