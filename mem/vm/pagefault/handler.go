// Package pagefault services translation misses: it finds a frame, evicts a
// victim page if memory is full, and pages the faulting page in.
package pagefault

import (
	"fmt"
	"sync"

	"github.com/sarchlab/vmsim/hooking"
	"github.com/sarchlab/vmsim/mem/frame"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

// A Pager is an address space as seen by the fault handler.
type Pager interface {
	ID() vm.ASID
	PID() vm.PID
	Ensure(vPage int) error
	IsResident(vPage int) bool
	PageIn(vPage, frame int) error
	PageOut(frame int) (wroteBack bool, err error)
}

// An OwnerResolver finds the live address space behind an ASID.
type OwnerResolver interface {
	Resolve(id vm.ASID) (Pager, bool)
}

// OwnerResolverFunc adapts a function to the OwnerResolver interface.
type OwnerResolverFunc func(id vm.ASID) (Pager, bool)

// Resolve calls f(id).
func (f OwnerResolverFunc) Resolve(id vm.ASID) (Pager, bool) {
	return f(id)
}

// Hook positions of the handler. The item of every position is a
// FaultDetail and the detail is the replacement.Kind in force.
var (
	HookPosPageFault   = &hooking.HookPos{Name: "PageFault"}
	HookPosEvict       = &hooking.HookPos{Name: "Evict"}
	HookPosPageIn      = &hooking.HookPos{Name: "PageIn"}
	HookPosFaultFailed = &hooking.HookPos{Name: "FaultFailed"}
)

// FaultDetail describes one page fault as it progresses.
type FaultDetail struct {
	Seq         int
	PID         vm.PID
	Address     int
	VirtualPage int
	Frame       int

	Evicted    bool
	VictimPID  vm.PID
	VictimPage int
	WroteBack  bool

	Err error
}

// Handler is the page fault handler shared by all processes.
type Handler struct {
	hooking.HookableBase

	name         string
	pageSize     int
	allocator    *frame.Allocator
	owners       *frame.OwnershipTable
	victimFinder replacement.VictimFinder
	resolver     OwnerResolver

	// lock stands in for disabling interrupts.
	lock      sync.Mutex
	numFaults int
}

// Name returns the name of the handler.
func (h *Handler) Name() string {
	return h.name
}

// PageSize returns the page size faults are resolved with.
func (h *Handler) PageSize() int {
	return h.pageSize
}

// VictimFinder returns the replacement policy.
func (h *Handler) VictimFinder() replacement.VictimFinder {
	return h.victimFinder
}

// NumFaults returns the number of faults handled so far, failed ones
// included.
func (h *Handler) NumFaults() int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.numFaults
}

// Do runs fn while no fault can be in progress.
func (h *Handler) Do(fn func()) {
	h.lock.Lock()
	defer h.lock.Unlock()

	fn()
}

// Release tells the replacement policy that frame was freed without being
// evicted. It must run inside Do, typically from an address space's release
// callback while it is destroyed.
func (h *Handler) Release(f int) {
	h.victimFinder.Released(f)
}

// HandlePageFault makes the page holding addr resident in space. On success
// the faulting access can be retried.
func (h *Handler) HandlePageFault(space Pager, addr int) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.numFaults++

	detail := FaultDetail{
		Seq:         h.numFaults,
		PID:         space.PID(),
		Address:     addr,
		VirtualPage: addr / h.pageSize,
		Frame:       frame.None,
	}
	h.invoke(HookPosPageFault, detail)

	err := h.handle(space, &detail)
	if err != nil {
		detail.Err = err
		h.invoke(HookPosFaultFailed, detail)

		return err
	}

	return nil
}

func (h *Handler) handle(space Pager, detail *FaultDetail) error {
	if detail.Address < 0 {
		return fmt.Errorf("address %d: %w", detail.Address, vm.ErrAddressOutOfRange)
	}

	vPage := detail.VirtualPage

	if err := space.Ensure(vPage); err != nil {
		return err
	}

	if space.IsResident(vPage) {
		return nil
	}

	f, err := h.obtainFrame(detail)
	if err != nil {
		return err
	}

	if err := space.PageIn(vPage, f); err != nil {
		h.allocator.Clear(f)
		return err
	}

	h.victimFinder.Loaded(f)
	detail.Frame = f
	h.invoke(HookPosPageIn, *detail)

	return nil
}

// obtainFrame returns a frame marked used in the allocator and empty in the
// ownership table.
func (h *Handler) obtainFrame(detail *FaultDetail) (int, error) {
	if f := h.allocator.Find(); f != frame.None {
		return f, nil
	}

	f, err := h.victimFinder.FindVictim(h.owners)
	if err != nil {
		return frame.None, err
	}

	owner, occupied := h.owners.Get(f)
	if !occupied {
		return frame.None, fmt.Errorf("victim frame %d is empty: %w",
			f, vm.ErrNoVictimAvailable)
	}

	victim, found := h.resolver.Resolve(owner.Space)
	if !found {
		h.victimFinder.Loaded(f)

		return frame.None, fmt.Errorf("frame %d owned by pid %d: %w",
			f, owner.PID, vm.ErrPageNotResident)
	}

	wroteBack, err := victim.PageOut(f)
	if err != nil {
		h.victimFinder.Loaded(f)
		return frame.None, err
	}

	h.owners.Clear(f)

	detail.Frame = f
	detail.Evicted = true
	detail.VictimPID = owner.PID
	detail.VictimPage = owner.VirtualPage
	detail.WroteBack = wroteBack
	h.invoke(HookPosEvict, *detail)

	return f, nil
}

func (h *Handler) invoke(pos *hooking.HookPos, detail FaultDetail) {
	if h.NumHooks() == 0 {
		return
	}

	h.InvokeHook(hooking.HookCtx{
		Domain: h,
		Pos:    pos,
		Item:   detail,
		Detail: h.victimFinder.Kind(),
	})
}
