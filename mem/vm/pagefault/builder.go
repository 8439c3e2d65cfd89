package pagefault

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/frame"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

// A Builder can build page fault handlers.
type Builder struct {
	pageSize     int
	allocator    *frame.Allocator
	owners       *frame.OwnershipTable
	victimFinder replacement.VictimFinder
	resolver     OwnerResolver
}

// MakeBuilder returns a Builder with 128-byte pages and demand paging.
func MakeBuilder() Builder {
	return Builder{
		pageSize:     128,
		victimFinder: replacement.NewDemandVictimFinder(),
	}
}

// WithPageSize sets the page size.
func (b Builder) WithPageSize(n int) Builder {
	b.pageSize = n
	return b
}

// WithFrameAllocator sets the frame allocator.
func (b Builder) WithFrameAllocator(a *frame.Allocator) Builder {
	b.allocator = a
	return b
}

// WithOwnershipTable sets the frame ownership table.
func (b Builder) WithOwnershipTable(t *frame.OwnershipTable) Builder {
	b.owners = t
	return b
}

// WithVictimFinder sets the replacement policy.
func (b Builder) WithVictimFinder(vf replacement.VictimFinder) Builder {
	b.victimFinder = vf
	return b
}

// WithOwnerResolver sets how ownership slots are turned into address spaces.
func (b Builder) WithOwnerResolver(r OwnerResolver) Builder {
	b.resolver = r
	return b
}

// Build creates a handler.
func (b Builder) Build(name string) *Handler {
	switch {
	case b.allocator == nil:
		panic("page fault handler: frame allocator not set")
	case b.owners == nil:
		panic("page fault handler: ownership table not set")
	case b.resolver == nil:
		panic("page fault handler: owner resolver not set")
	case b.victimFinder == nil:
		panic("page fault handler: victim finder not set")
	case b.pageSize <= 0:
		panic(fmt.Sprintf("page fault handler: page size %d", b.pageSize))
	case b.allocator.NumFrames() != b.owners.NumFrames():
		panic(fmt.Sprintf("page fault handler: %d frames in allocator, %d in ownership table",
			b.allocator.NumFrames(), b.owners.NumFrames()))
	}

	return &Handler{
		name:         name,
		pageSize:     b.pageSize,
		allocator:    b.allocator,
		owners:       b.owners,
		victimFinder: b.victimFinder,
		resolver:     b.resolver,
	}
}
