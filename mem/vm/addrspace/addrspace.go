// Package addrspace implements the address space of a user process: its page
// table, its swap file, and the moves of its pages between the swap file and
// physical frames.
package addrspace

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/machine"
	"github.com/sarchlab/vmsim/mem/frame"
	"github.com/sarchlab/vmsim/mem/swap"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/noff"
)

// ErrDestroyed is returned by operations on a destroyed address space.
var ErrDestroyed = errors.New("address space destroyed")

// Stats counts the paging activity of one address space.
type Stats struct {
	PageIns    int
	PageOuts   int
	WriteBacks int
	Swap       swap.Stats
}

// AddressSpace is the virtual memory of one process.
type AddressSpace struct {
	id        vm.ASID
	pid       vm.PID
	pageSize  int
	numPages  int
	header    noff.Header
	table     vm.PageTable
	store     *swap.BackingStore
	machine   machine.Machine
	allocator *frame.Allocator
	owners    *frame.OwnershipTable
	onRelease func(frame int)
	stats     Stats
	destroyed bool
}

// ID returns the identifier frames are owned under.
func (as *AddressSpace) ID() vm.ASID {
	return as.id
}

// PID returns the process the address space belongs to.
func (as *AddressSpace) PID() vm.PID {
	return as.pid
}

// NumPages returns the number of virtual pages.
func (as *AddressSpace) NumPages() int {
	return as.numPages
}

// PageSize returns the page size in bytes.
func (as *AddressSpace) PageSize() int {
	return as.pageSize
}

// Header returns the header of the executable the space was loaded from.
func (as *AddressSpace) Header() noff.Header {
	return as.header
}

// PageTable returns the translation table.
func (as *AddressSpace) PageTable() vm.PageTable {
	return as.table
}

// SwapFileName returns the name of the backing store.
func (as *AddressSpace) SwapFileName() string {
	return as.store.Name()
}

// Destroyed tells if Destroy has been called.
func (as *AddressSpace) Destroyed() bool {
	return as.destroyed
}

// Stats returns the paging counters.
func (as *AddressSpace) Stats() Stats {
	s := as.stats
	s.Swap = as.store.Stats()

	return s
}

// ResidentPages returns the virtual pages currently in memory, in order.
func (as *AddressSpace) ResidentPages() []int {
	var pages []int

	if as.destroyed {
		return pages
	}

	as.table.ForEachValid(func(e *vm.TranslationEntry) {
		pages = append(pages, e.VirtualPage)
	})

	return pages
}

// IsResident tells if vPage is mapped to a frame.
func (as *AddressSpace) IsResident(vPage int) bool {
	if as.destroyed {
		return false
	}

	e, found := as.table.Lookup(vPage)

	return found && e.Valid
}

// Ensure makes the table entry of vPage addressable.
func (as *AddressSpace) Ensure(vPage int) error {
	if as.destroyed {
		return ErrDestroyed
	}

	return as.table.Ensure(vPage)
}

func (as *AddressSpace) load(executable io.ReaderAt) error {
	if !as.store.ZeroFilled() {
		total := int64(as.numPages) * int64(as.pageSize)
		if err := as.store.Zero(0, total); err != nil {
			return err
		}
	}

	for _, seg := range []noff.Segment{as.header.Code, as.header.InitData} {
		if err := as.copySegment(executable, seg); err != nil {
			return err
		}
	}

	return nil
}

func (as *AddressSpace) copySegment(executable io.ReaderAt, seg noff.Segment) error {
	if seg.Size == 0 {
		return nil
	}

	buf := make([]byte, seg.Size)

	n, err := executable.ReadAt(buf, int64(seg.InFileAddr))
	if n != len(buf) {
		return fmt.Errorf("segment at file offset %d: read %d of %d bytes: %w",
			seg.InFileAddr, n, len(buf), errors.Join(vm.ErrBackingStoreIO, err))
	}

	return as.store.WriteAt(buf, int64(seg.VirtualAddr))
}

// InitRegisters sets the registers for the first instruction of the program.
func (as *AddressSpace) InitRegisters() {
	for r := machine.Register(0); r < machine.NumTotalRegs; r++ {
		as.machine.WriteRegister(r, 0)
	}

	pc := as.header.EntryPoint()
	as.machine.WriteRegister(machine.PCReg, pc)
	as.machine.WriteRegister(machine.NextPCReg, pc+4)

	// Back off a little so the first push stays inside the space.
	as.machine.WriteRegister(machine.StackReg, as.numPages*as.pageSize-16)
}

// SaveState keeps nothing; all state lives in the address space already.
func (as *AddressSpace) SaveState() {}

// RestoreState installs the page table into the machine.
func (as *AddressSpace) RestoreState() {
	as.machine.SetPageTable(as.table, as.numPages)
}

// PageIn reads vPage from the swap file into frame and maps it. Nothing is
// mapped if the read fails. A page that is already resident is reloaded; if
// it moves to another frame, its old frame is given back.
func (as *AddressSpace) PageIn(vPage, f int) error {
	if as.destroyed {
		return ErrDestroyed
	}

	if err := as.table.Ensure(vPage); err != nil {
		return err
	}

	e, _ := as.table.Lookup(vPage)

	if owner, occupied := as.owners.Get(f); occupied &&
		(owner.Space != as.id || owner.VirtualPage != vPage) {
		panic(fmt.Sprintf("pid %d: frame %d is still owned by pid %d page %d",
			as.pid, f, owner.PID, owner.VirtualPage))
	}

	if e.Valid && e.PhysicalFrame != f {
		as.unmap(e)
	}

	if err := as.store.ReadPage(vPage, machine.FrameBytes(as.machine, f)); err != nil {
		return fmt.Errorf("pid %d page in %d: %w", as.pid, vPage, err)
	}

	e.PhysicalFrame = f
	e.Valid = true
	e.Dirty = false
	e.Referenced = false

	as.owners.Set(f, frame.Owner{
		Space:       as.id,
		PID:         as.pid,
		VirtualPage: vPage,
	})
	as.stats.PageIns++

	return nil
}

// unmap drops the mapping of e and gives its frame back.
func (as *AddressSpace) unmap(e *vm.TranslationEntry) {
	old := e.PhysicalFrame

	e.Valid = false
	e.Dirty = false
	e.Referenced = false
	e.PhysicalFrame = vm.NoFrame

	if owner, occupied := as.owners.Get(old); occupied && owner.Space == as.id {
		as.owners.Clear(old)
	}

	if as.allocator.IsUsed(old) {
		as.allocator.Clear(old)
	}

	if as.onRelease != nil {
		as.onRelease(old)
	}
}

// PageOut unmaps the page held in frame, writing it back first if it is
// dirty. The ownership slot of the frame is left for the caller to clear.
func (as *AddressSpace) PageOut(f int) (wroteBack bool, err error) {
	if as.destroyed {
		return false, ErrDestroyed
	}

	vPage, found := as.table.FindVirtualPageForFrame(f)
	if !found {
		return false, fmt.Errorf("pid %d frame %d: %w",
			as.pid, f, vm.ErrPageNotResident)
	}

	e, _ := as.table.Lookup(vPage)

	if e.Dirty {
		err := as.store.WritePage(vPage, machine.FrameBytes(as.machine, f))
		if err != nil {
			return false, fmt.Errorf("pid %d page out %d: %w", as.pid, vPage, err)
		}

		wroteBack = true
		as.stats.WriteBacks++
	}

	e.Valid = false
	e.Dirty = false
	e.Referenced = false
	e.PhysicalFrame = vm.NoFrame
	as.stats.PageOuts++

	return wroteBack, nil
}

// Destroy gives back every frame the space holds, drops the page table, and
// deletes the swap file. Calling it again does nothing.
func (as *AddressSpace) Destroy() error {
	if as.destroyed {
		return nil
	}

	as.destroyed = true

	var frames []int

	as.table.ForEachValid(func(e *vm.TranslationEntry) {
		frames = append(frames, e.PhysicalFrame)
	})

	for _, f := range frames {
		if owner, occupied := as.owners.Get(f); occupied && owner.Space == as.id {
			as.owners.Clear(f)
		}

		as.allocator.Clear(f)

		if as.onRelease != nil {
			as.onRelease(f)
		}
	}

	if pt, _ := as.machine.PageTable(); pt == as.table {
		as.machine.SetPageTable(nil, 0)
	}

	as.table.Release()

	return as.store.Destroy()
}
