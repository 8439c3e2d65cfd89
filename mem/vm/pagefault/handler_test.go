package pagefault

import (
	"bytes"
	"errors"
	"log"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vmsim/hooking"
	"github.com/sarchlab/vmsim/machine"
	"github.com/sarchlab/vmsim/mem/frame"
	"github.com/sarchlab/vmsim/mem/swap"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addrspace"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/noff"
)

const pageSize = 128

var _ = Describe("Handler", func() {
	var (
		m         *machine.Simple
		allocator *frame.Allocator
		owners    *frame.OwnershipTable
		spaces    map[vm.ASID]*addrspace.AddressSpace
		resolver  OwnerResolver
		builder   addrspace.Builder
		handler   *Handler
		nextPID   vm.PID
	)

	buildHandler := func(vf replacement.VictimFinder) {
		handler = MakeBuilder().
			WithPageSize(pageSize).
			WithFrameAllocator(allocator).
			WithOwnershipTable(owners).
			WithVictimFinder(vf).
			WithOwnerResolver(resolver).
			Build("PageFaultHandler")
	}

	newSpace := func(numPages int) *addrspace.AddressSpace {
		code := make([]byte, numPages*pageSize)
		for i := range code {
			code[i] = byte(i / pageSize)
		}

		nextPID++

		as, err := builder.
			WithReleaseCallback(func(f int) { handler.Release(f) }).
			Build(bytes.NewReader(noff.Build(code, nil, 0)), nextPID)
		Expect(err).NotTo(HaveOccurred())

		spaces[as.ID()] = as

		return as
	}

	checkConsistency := func() {
		used := map[int]bool{}

		for _, as := range spaces {
			if as.Destroyed() {
				continue
			}

			as.PageTable().ForEachValid(func(e *vm.TranslationEntry) {
				Expect(used).NotTo(HaveKey(e.PhysicalFrame))
				used[e.PhysicalFrame] = true

				owner, occupied := owners.Get(e.PhysicalFrame)
				Expect(occupied).To(BeTrue())
				Expect(owner.Space).To(Equal(as.ID()))
				Expect(owner.VirtualPage).To(Equal(e.VirtualPage))
			})
		}

		for f := 0; f < allocator.NumFrames(); f++ {
			Expect(allocator.IsUsed(f)).To(Equal(used[f]), "frame %d", f)
			Expect(owners.IsEmpty(f)).To(Equal(!used[f]), "frame %d", f)
		}
	}

	BeforeEach(func() {
		m = machine.NewSimple(4, pageSize)
		allocator = frame.NewAllocator(4)
		owners = frame.NewOwnershipTable(4)
		spaces = make(map[vm.ASID]*addrspace.AddressSpace)
		nextPID = 0
		resolver = OwnerResolverFunc(func(id vm.ASID) (Pager, bool) {
			as, found := spaces[id]
			if !found || as.Destroyed() {
				return nil, false
			}

			return as, true
		})
		builder = addrspace.MakeBuilder().
			WithPageSize(pageSize).
			WithStackSize(0).
			WithFileSystem(swap.NewMemFileSystem()).
			WithMachine(m).
			WithFrameAllocator(allocator).
			WithOwnershipTable(owners)
	})

	Context("with demand paging", func() {
		BeforeEach(func() {
			buildHandler(replacement.NewDemandVictimFinder())
		})

		It("should load pages into free frames in order", func() {
			as := newSpace(6)

			for p := 0; p < 4; p++ {
				Expect(handler.HandlePageFault(as, p*pageSize+4)).To(Succeed())
				checkConsistency()
			}

			Expect(as.ResidentPages()).To(Equal([]int{0, 1, 2, 3}))
			Expect(allocator.NumFree()).To(Equal(0))
			Expect(handler.NumFaults()).To(Equal(4))

			for f := 0; f < 4; f++ {
				Expect(machine.FrameBytes(m, f)[0]).To(Equal(byte(f)))
			}
		})

		It("should fail with out of memory when frames run out", func() {
			as := newSpace(6)
			for p := 0; p < 4; p++ {
				Expect(handler.HandlePageFault(as, p*pageSize)).To(Succeed())
			}

			err := handler.HandlePageFault(as, 4*pageSize)

			Expect(errors.Is(err, vm.ErrOutOfMemory)).To(BeTrue())
			Expect(as.IsResident(4)).To(BeFalse())
			Expect(as.ResidentPages()).To(Equal([]int{0, 1, 2, 3}))
			checkConsistency()
		})

		It("should ignore a fault on a resident page", func() {
			as := newSpace(2)
			Expect(handler.HandlePageFault(as, 0)).To(Succeed())

			Expect(handler.HandlePageFault(as, 8)).To(Succeed())

			Expect(allocator.NumFree()).To(Equal(3))
			checkConsistency()
		})

		It("should reject addresses outside the space", func() {
			as := newSpace(2)

			Expect(errors.Is(handler.HandlePageFault(as, -4),
				vm.ErrAddressOutOfRange)).To(BeTrue())
			Expect(errors.Is(handler.HandlePageFault(as, 2*pageSize),
				vm.ErrAddressOutOfRange)).To(BeTrue())
			Expect(allocator.NumFree()).To(Equal(4))
		})
	})

	Context("with FIFO replacement", func() {
		var fifo *replacement.FIFOVictimFinder

		BeforeEach(func() {
			fifo = replacement.NewFIFOVictimFinder()
			buildHandler(fifo)
		})

		It("should evict in load order", func() {
			as := newSpace(6)
			for p := 0; p < 4; p++ {
				Expect(handler.HandlePageFault(as, p*pageSize)).To(Succeed())
			}

			Expect(handler.HandlePageFault(as, 4*pageSize)).To(Succeed())
			Expect(as.ResidentPages()).To(Equal([]int{1, 2, 3, 4}))
			e, _ := as.PageTable().Lookup(4)
			Expect(e.PhysicalFrame).To(Equal(0))
			checkConsistency()

			Expect(handler.HandlePageFault(as, 5*pageSize)).To(Succeed())
			Expect(as.ResidentPages()).To(Equal([]int{2, 3, 4, 5}))
			e, _ = as.PageTable().Lookup(5)
			Expect(e.PhysicalFrame).To(Equal(1))
			checkConsistency()

			Expect(fifo.Resident()).To(Equal([]int{2, 3, 0, 1}))
		})

		It("should write back dirty victims and read them again", func() {
			as := newSpace(6)
			as.RestoreState()
			m.SetFaultHandler(func(addr int) error {
				return handler.HandlePageFault(as, addr)
			})

			Expect(m.WriteWord(8, 0x5eed)).To(Succeed())
			for p := 1; p < 6; p++ {
				_, err := m.ReadWord(p * pageSize)
				Expect(err).NotTo(HaveOccurred())
				checkConsistency()
			}

			Expect(as.IsResident(0)).To(BeFalse())
			Expect(as.Stats().WriteBacks).To(Equal(1))

			v, err := m.ReadWord(8)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(0x5eed))
			checkConsistency()
		})

		It("should evict pages of other processes", func() {
			a := newSpace(4)
			b := newSpace(4)
			for p := 0; p < 4; p++ {
				Expect(handler.HandlePageFault(a, p*pageSize)).To(Succeed())
			}

			Expect(handler.HandlePageFault(b, 0)).To(Succeed())

			Expect(a.ResidentPages()).To(Equal([]int{1, 2, 3}))
			Expect(b.ResidentPages()).To(Equal([]int{0}))
			checkConsistency()
		})

		It("should forget frames of destroyed spaces", func() {
			a := newSpace(4)
			for p := 0; p < 3; p++ {
				Expect(handler.HandlePageFault(a, p*pageSize)).To(Succeed())
			}

			handler.Do(func() {
				Expect(a.Destroy()).To(Succeed())
			})

			Expect(fifo.Resident()).To(BeEmpty())
			Expect(allocator.NumFree()).To(Equal(4))
			checkConsistency()
		})

		It("should report a victim whose owner is gone", func() {
			as := newSpace(6)
			for p := 0; p < 4; p++ {
				Expect(handler.HandlePageFault(as, p*pageSize)).To(Succeed())
			}

			other := newSpace(1)
			delete(spaces, as.ID())

			err := handler.HandlePageFault(other, 0)

			Expect(errors.Is(err, vm.ErrPageNotResident)).To(BeTrue())
			Expect(fifo.Resident()).To(ConsistOf(0, 1, 2, 3))
		})
	})

	Context("with random replacement", func() {
		BeforeEach(func() {
			buildHandler(replacement.NewRandomVictimFinder(rand.New(rand.NewSource(7))))
		})

		It("should keep frames consistent across processes", func() {
			a := newSpace(6)
			b := newSpace(5)
			rng := rand.New(rand.NewSource(3))

			for i := 0; i < 200; i++ {
				space := a
				if rng.Intn(2) == 1 {
					space = b
				}

				addr := rng.Intn(space.NumPages() * pageSize)
				Expect(handler.HandlePageFault(space, addr)).To(Succeed())
				Expect(space.IsResident(addr / pageSize)).To(BeTrue())
				checkConsistency()
			}

			Expect(allocator.NumFree()).To(Equal(0))
		})
	})

	Context("with two-level tables", func() {
		BeforeEach(func() {
			builder = builder.
				WithLayout(vm.LayoutTwoLevel).
				WithTwoLevelShape(8, 4)
			buildHandler(replacement.NewFIFOVictimFinder())
		})

		It("should allocate inner blocks only on faults in their range", func() {
			as := newSpace(20)
			table := as.PageTable().(*vm.TwoLevelPageTable)

			Expect(handler.HandlePageFault(as, 17*pageSize)).To(Succeed())

			Expect(table.OuterSize()).To(Equal(8))
			Expect(table.NumInnerAllocated()).To(Equal(1))
			Expect(table.InnerAllocated(4)).To(BeTrue())

			Expect(handler.HandlePageFault(as, 18*pageSize)).To(Succeed())
			Expect(table.NumInnerAllocated()).To(Equal(1))
			checkConsistency()
		})
	})

	Context("with hooks", func() {
		BeforeEach(func() {
			buildHandler(replacement.NewFIFOVictimFinder())
		})

		It("should report every stage of a fault", func() {
			var positions []*hooking.HookPos
			handler.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				positions = append(positions, ctx.Pos)
				Expect(ctx.Domain).To(BeIdenticalTo(handler))
				Expect(ctx.Detail).To(Equal(replacement.FIFO))
			}))

			as := newSpace(6)
			for p := 0; p < 5; p++ {
				Expect(handler.HandlePageFault(as, p*pageSize)).To(Succeed())
			}

			Expect(positions).To(HaveLen(11))
			Expect(positions[8:]).To(Equal([]*hooking.HookPos{
				HookPosPageFault, HookPosEvict, HookPosPageIn,
			}))
		})

		It("should log faults", func() {
			buf := new(bytes.Buffer)
			handler.AcceptHook(NewLogHook(log.New(buf, "", 0)))

			as := newSpace(6)
			for p := 0; p < 5; p++ {
				Expect(handler.HandlePageFault(as, p*pageSize)).To(Succeed())
			}

			Expect(buf.String()).To(ContainSubstring(
				"PAGE FAULT #1: process 1 requests virtual page 0"))
			Expect(buf.String()).To(ContainSubstring(
				"swapping out process 1 page 0 from frame 0 (written back: false), " +
					"chosen by First in, First out"))
			Expect(buf.String()).To(ContainSubstring(
				"swapping in process 1 virtual page 4 to frame 0"))
		})
	})
})

var _ = Describe("Handler with a mocked pager", func() {
	var (
		mockCtrl  *gomock.Controller
		pager     *MockPager
		allocator *frame.Allocator
		owners    *frame.OwnershipTable
		handler   *Handler
		failures  []FaultDetail
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		pager = NewMockPager(mockCtrl)
		allocator = frame.NewAllocator(2)
		owners = frame.NewOwnershipTable(2)
		failures = nil

		handler = MakeBuilder().
			WithPageSize(pageSize).
			WithFrameAllocator(allocator).
			WithOwnershipTable(owners).
			WithVictimFinder(replacement.NewFIFOVictimFinder()).
			WithOwnerResolver(OwnerResolverFunc(func(vm.ASID) (Pager, bool) {
				return pager, true
			})).
			Build("PageFaultHandler")
		handler.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosFaultFailed {
				failures = append(failures, ctx.Item.(FaultDetail))
			}
		}))

		pager.EXPECT().PID().Return(vm.PID(9)).AnyTimes()
		pager.EXPECT().Ensure(gomock.Any()).Return(nil).AnyTimes()
		pager.EXPECT().IsResident(gomock.Any()).Return(false).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should give the frame back when paging in fails", func() {
		ioErr := errors.New("disk gone")
		pager.EXPECT().PageIn(3, 0).Return(ioErr)

		err := handler.HandlePageFault(pager, 3*pageSize)

		Expect(err).To(MatchError(ioErr))
		Expect(allocator.NumFree()).To(Equal(2))
		Expect(failures).To(HaveLen(1))
		Expect(failures[0].Err).To(MatchError(ioErr))
		Expect(failures[0].PID).To(Equal(vm.PID(9)))
	})

	It("should keep the victim when paging out fails", func() {
		owners.Set(allocator.Find(), frame.Owner{PID: 9, VirtualPage: 0})
		owners.Set(allocator.Find(), frame.Owner{PID: 9, VirtualPage: 1})
		handler.VictimFinder().Loaded(0)
		handler.VictimFinder().Loaded(1)

		pager.EXPECT().PageOut(0).Return(false, vm.ErrBackingStoreIO)

		err := handler.HandlePageFault(pager, 5*pageSize)

		Expect(errors.Is(err, vm.ErrBackingStoreIO)).To(BeTrue())
		Expect(owners.IsEmpty(0)).To(BeFalse())
		Expect(allocator.IsUsed(0)).To(BeTrue())
	})
})
