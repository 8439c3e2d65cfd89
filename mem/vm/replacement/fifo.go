package replacement

import (
	"container/list"

	"github.com/sarchlab/vmsim/mem/vm"
)

// FIFOVictimFinder evicts the frame that was loaded the longest time ago.
type FIFOVictimFinder struct {
	queue    *list.List
	elements map[int]*list.Element
}

// NewFIFOVictimFinder returns a FIFOVictimFinder with an empty queue.
func NewFIFOVictimFinder() *FIFOVictimFinder {
	return &FIFOVictimFinder{
		queue:    list.New(),
		elements: make(map[int]*list.Element),
	}
}

// Kind returns FIFO.
func (*FIFOVictimFinder) Kind() Kind {
	return FIFO
}

// FindVictim pops the oldest resident frame. Frames whose slot has been
// emptied behind the finder's back are dropped.
func (e *FIFOVictimFinder) FindVictim(owners OwnerView) (int, error) {
	for e.queue.Len() > 0 {
		front := e.queue.Front()
		frame := front.Value.(int)
		e.remove(frame)

		if !owners.IsEmpty(frame) {
			return frame, nil
		}
	}

	return 0, vm.ErrNoVictimAvailable
}

// Loaded appends frame to the back of the queue. A frame already queued moves
// to the back.
func (e *FIFOVictimFinder) Loaded(frame int) {
	e.remove(frame)
	e.elements[frame] = e.queue.PushBack(frame)
}

// Released removes frame from the queue.
func (e *FIFOVictimFinder) Released(frame int) {
	e.remove(frame)
}

// Resident lists the queued frames, oldest first.
func (e *FIFOVictimFinder) Resident() []int {
	frames := make([]int, 0, e.queue.Len())
	for elem := e.queue.Front(); elem != nil; elem = elem.Next() {
		frames = append(frames, elem.Value.(int))
	}

	return frames
}

func (e *FIFOVictimFinder) remove(frame int) {
	elem, found := e.elements[frame]
	if !found {
		return
	}

	e.queue.Remove(elem)
	delete(e.elements, frame)
}
