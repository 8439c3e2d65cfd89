package frame

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
)

// An Owner is a weak back-reference from a frame to the page occupying it.
type Owner struct {
	Space       vm.ASID
	PID         vm.PID
	VirtualPage int
}

type slot struct {
	owner    Owner
	occupied bool
}

// OwnershipTable is the inverted page table: one slot per physical frame
// naming the address space and virtual page that currently live there.
type OwnershipTable struct {
	slots []slot
}

// NewOwnershipTable creates an ownership table with every slot empty.
func NewOwnershipTable(numFrames int) *OwnershipTable {
	return &OwnershipTable{
		slots: make([]slot, numFrames),
	}
}

// NumFrames returns the number of slots.
func (t *OwnershipTable) NumFrames() int {
	return len(t.slots)
}

// Set records that owner occupies frame f.
func (t *OwnershipTable) Set(f int, owner Owner) {
	t.mustBeInRange(f)
	t.slots[f] = slot{owner: owner, occupied: true}
}

// Get returns the owner of frame f. The bool is false for an empty slot.
func (t *OwnershipTable) Get(f int) (Owner, bool) {
	t.mustBeInRange(f)
	s := t.slots[f]

	return s.owner, s.occupied
}

// IsEmpty tells if no page occupies frame f.
func (t *OwnershipTable) IsEmpty(f int) bool {
	t.mustBeInRange(f)
	return !t.slots[f].occupied
}

// Clear empties the slot of frame f.
func (t *OwnershipTable) Clear(f int) {
	t.mustBeInRange(f)
	t.slots[f] = slot{}
}

// OccupiedFrames lists the frames with a non-empty slot in ascending order.
func (t *OwnershipTable) OccupiedFrames() []int {
	var frames []int

	for f, s := range t.slots {
		if s.occupied {
			frames = append(frames, f)
		}
	}

	return frames
}

// FramesOf lists the frames occupied by one address space.
func (t *OwnershipTable) FramesOf(space vm.ASID) []int {
	var frames []int

	for f, s := range t.slots {
		if s.occupied && s.owner.Space == space {
			frames = append(frames, f)
		}
	}

	return frames
}

// SlotInfo is a copy of one slot, for inspection.
type SlotInfo struct {
	Frame       int    `json:"frame"`
	Occupied    bool   `json:"occupied"`
	Space       string `json:"space,omitempty"`
	PID         vm.PID `json:"pid"`
	VirtualPage int    `json:"virtual_page"`
}

// Snapshot copies every slot.
func (t *OwnershipTable) Snapshot() []SlotInfo {
	infos := make([]SlotInfo, len(t.slots))

	for f, s := range t.slots {
		infos[f] = SlotInfo{Frame: f, Occupied: s.occupied}
		if s.occupied {
			infos[f].Space = s.owner.Space.String()
			infos[f].PID = s.owner.PID
			infos[f].VirtualPage = s.owner.VirtualPage
		}
	}

	return infos
}

func (t *OwnershipTable) mustBeInRange(f int) {
	if f < 0 || f >= len(t.slots) {
		panic(fmt.Sprintf("frame %d out of range [0, %d)", f, len(t.slots)))
	}
}
