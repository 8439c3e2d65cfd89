package replacement

import (
	"math/rand"

	"github.com/sarchlab/vmsim/mem/vm"
)

// RandomVictimFinder picks a frame uniformly among all physical frames. A pick
// that lands on an empty frame is retried; after as many misses as there are
// frames it scans for an occupied frame from a random start.
type RandomVictimFinder struct {
	rng *rand.Rand
}

// NewRandomVictimFinder returns a RandomVictimFinder drawing from rng.
func NewRandomVictimFinder(rng *rand.Rand) *RandomVictimFinder {
	return &RandomVictimFinder{rng: rng}
}

// Kind returns Random.
func (*RandomVictimFinder) Kind() Kind {
	return Random
}

// FindVictim returns a random occupied frame.
func (e *RandomVictimFinder) FindVictim(owners OwnerView) (int, error) {
	n := owners.NumFrames()
	if n == 0 {
		return 0, vm.ErrNoVictimAvailable
	}

	for i := 0; i < n; i++ {
		frame := e.rng.Intn(n)
		if !owners.IsEmpty(frame) {
			return frame, nil
		}
	}

	start := e.rng.Intn(n)
	for i := 0; i < n; i++ {
		frame := (start + i) % n
		if !owners.IsEmpty(frame) {
			return frame, nil
		}
	}

	return 0, vm.ErrNoVictimAvailable
}

// Loaded does nothing.
func (*RandomVictimFinder) Loaded(int) {}

// Released does nothing.
func (*RandomVictimFinder) Released(int) {}
