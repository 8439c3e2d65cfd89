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

// A Builder can build address spaces.
type Builder struct {
	pageSize  int
	stackSize int
	layout    vm.Layout
	outerSize int
	innerSize int
	fs        swap.FileSystem
	machine   machine.Machine
	allocator *frame.Allocator
	owners    *frame.OwnershipTable
	onRelease func(frame int)
}

// MakeBuilder returns a Builder with 128-byte pages, a 1 KiB stack and a
// flat page table.
func MakeBuilder() Builder {
	return Builder{
		pageSize:  128,
		stackSize: 1024,
		layout:    vm.LayoutFlat,
		outerSize: 64,
		innerSize: 32,
	}
}

// WithPageSize sets the page size in bytes.
func (b Builder) WithPageSize(n int) Builder {
	b.pageSize = n
	return b
}

// WithStackSize sets the bytes reserved for the user stack.
func (b Builder) WithStackSize(n int) Builder {
	b.stackSize = n
	return b
}

// WithLayout selects the page table layout.
func (b Builder) WithLayout(l vm.Layout) Builder {
	b.layout = l
	return b
}

// WithTwoLevelShape sets the outer and inner sizes of two-level tables.
func (b Builder) WithTwoLevelShape(outer, inner int) Builder {
	b.outerSize = outer
	b.innerSize = inner

	return b
}

// WithFileSystem sets the file system swap files are created in.
func (b Builder) WithFileSystem(fs swap.FileSystem) Builder {
	b.fs = fs
	return b
}

// WithMachine sets the emulator whose memory pages move in and out of.
func (b Builder) WithMachine(m machine.Machine) Builder {
	b.machine = m
	return b
}

// WithFrameAllocator sets the shared frame allocator.
func (b Builder) WithFrameAllocator(a *frame.Allocator) Builder {
	b.allocator = a
	return b
}

// WithOwnershipTable sets the shared frame ownership table.
func (b Builder) WithOwnershipTable(t *frame.OwnershipTable) Builder {
	b.owners = t
	return b
}

// WithReleaseCallback sets a function called for every frame the address
// space gives back, on destruction or when a resident page moves.
func (b Builder) WithReleaseCallback(fn func(frame int)) Builder {
	b.onRelease = fn
	return b
}

func (b Builder) mustBeComplete() {
	switch {
	case b.fs == nil:
		panic("address space builder: file system not set")
	case b.machine == nil:
		panic("address space builder: machine not set")
	case b.allocator == nil:
		panic("address space builder: frame allocator not set")
	case b.owners == nil:
		panic("address space builder: ownership table not set")
	case b.pageSize <= 0:
		panic(fmt.Sprintf("address space builder: page size %d", b.pageSize))
	case b.pageSize != b.machine.PageSize():
		panic(fmt.Sprintf("address space builder: page size %d, machine uses %d",
			b.pageSize, b.machine.PageSize()))
	}
}

// Build loads executable into a new address space of process pid. The code
// and initialized data are copied into a fresh swap file; no page is
// resident until it faults in.
func (b Builder) Build(executable io.ReaderAt, pid vm.PID) (*AddressSpace, error) {
	b.mustBeComplete()

	header, err := noff.ReadHeader(executable)
	if err != nil {
		return nil, err
	}

	size := header.ImageSize() + b.stackSize
	numPages := divRoundUp(size, b.pageSize)

	table, err := vm.NewPageTable(b.layout, numPages, b.outerSize, b.innerSize)
	if err != nil {
		return nil, err
	}

	store, err := swap.Create(b.fs, SwapFileName(pid), numPages, b.pageSize)
	if err != nil {
		return nil, err
	}

	as := &AddressSpace{
		id:        vm.NewASID(),
		pid:       pid,
		pageSize:  b.pageSize,
		numPages:  numPages,
		header:    header,
		table:     table,
		store:     store,
		machine:   b.machine,
		allocator: b.allocator,
		owners:    b.owners,
		onRelease: b.onRelease,
	}

	if err := as.load(executable); err != nil {
		table.Release()
		return nil, errors.Join(err, store.Destroy())
	}

	return as, nil
}

// SwapFileName returns the name of the swap file of process pid.
func SwapFileName(pid vm.PID) string {
	return fmt.Sprintf("%d.swap", pid)
}

func divRoundUp(n, d int) int {
	return (n + d - 1) / d
}
