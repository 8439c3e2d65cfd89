// Package frame manages the physical frames of the simulated machine: which
// frames are in use and which address space occupies each of them.
package frame

import (
	"fmt"
	"strings"

	"github.com/Workiva/go-datastructures/bitarray"
)

// None is returned by Find when every frame is in use.
const None = -1

// Allocator tracks used and free physical frames with a bitmap.
type Allocator struct {
	numFrames int

	// numFree mirrors the number of clear bits in used.
	numFree int

	used bitarray.BitArray
}

// NewAllocator creates an allocator for numFrames frames, all free.
func NewAllocator(numFrames int) *Allocator {
	if numFrames <= 0 {
		panic(fmt.Sprintf("frame allocator needs frames, got %d", numFrames))
	}

	return &Allocator{
		numFrames: numFrames,
		numFree:   numFrames,
		used:      bitarray.NewBitArray(uint64(numFrames)),
	}
}

// NumFrames returns the total number of frames.
func (a *Allocator) NumFrames() int {
	return a.numFrames
}

// NumFree returns the number of free frames.
func (a *Allocator) NumFree() int {
	return a.numFree
}

// Find marks the lowest free frame as used and returns it. It returns None
// if no frame is free.
func (a *Allocator) Find() int {
	if a.numFree == 0 {
		return None
	}

	for f := 0; f < a.numFrames; f++ {
		if a.IsUsed(f) {
			continue
		}

		a.mark(f)

		return f
	}

	panic("free count says a frame is free but the bitmap has none")
}

func (a *Allocator) mark(f int) {
	if err := a.used.SetBit(uint64(f)); err != nil {
		panic(err)
	}

	a.numFree--
}

// Clear frees a frame. Freeing a free frame panics.
func (a *Allocator) Clear(f int) {
	a.mustBeInRange(f)

	if !a.IsUsed(f) {
		panic(fmt.Sprintf("frame %d is not in use", f))
	}

	if err := a.used.ClearBit(uint64(f)); err != nil {
		panic(err)
	}

	a.numFree++
}

// IsUsed tells if frame f is allocated.
func (a *Allocator) IsUsed(f int) bool {
	a.mustBeInRange(f)

	set, err := a.used.GetBit(uint64(f))
	if err != nil {
		panic(err)
	}

	return set
}

// UsedFrames lists the allocated frames in ascending order.
func (a *Allocator) UsedFrames() []int {
	nums := a.used.ToNums()

	frames := make([]int, 0, len(nums))
	for _, n := range nums {
		frames = append(frames, int(n))
	}

	return frames
}

func (a *Allocator) mustBeInRange(f int) {
	if f < 0 || f >= a.numFrames {
		panic(fmt.Sprintf("frame %d out of range [0, %d)", f, a.numFrames))
	}
}

// String prints the used frames the way a memory-map dump does.
func (a *Allocator) String() string {
	var b strings.Builder

	b.WriteString("Bitmap set:\n")

	for i, f := range a.UsedFrames() {
		if i > 0 {
			b.WriteString(", ")
		}

		fmt.Fprintf(&b, "%d", f)
	}

	b.WriteString("\n")

	return b.String()
}
