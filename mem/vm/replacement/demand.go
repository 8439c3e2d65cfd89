package replacement

import (
	"github.com/sarchlab/vmsim/mem/vm"
)

// DemandVictimFinder never evicts. A fault with no free frame fails with
// vm.ErrOutOfMemory.
type DemandVictimFinder struct{}

// NewDemandVictimFinder returns a DemandVictimFinder.
func NewDemandVictimFinder() *DemandVictimFinder {
	return &DemandVictimFinder{}
}

// Kind returns Demand.
func (*DemandVictimFinder) Kind() Kind {
	return Demand
}

// FindVictim always fails.
func (*DemandVictimFinder) FindVictim(OwnerView) (int, error) {
	return 0, vm.ErrOutOfMemory
}

// Loaded does nothing.
func (*DemandVictimFinder) Loaded(int) {}

// Released does nothing.
func (*DemandVictimFinder) Released(int) {}
