package vm

import "fmt"

// TwoLevelPageTable splits the virtual pages into fixed-size ranges. The
// outer array has one slot per range and never grows; a slot owns an inner
// block of entries only after a page in its range has been touched.
type TwoLevelPageTable struct {
	numPages  int
	innerSize int
	outer     [][]TranslationEntry
}

// NewTwoLevelPageTable creates a two-level table covering numPages pages with
// outerSize slots of innerSize entries each. No inner block is allocated.
func NewTwoLevelPageTable(
	numPages, outerSize, innerSize int,
) (*TwoLevelPageTable, error) {
	if outerSize <= 0 || innerSize <= 0 {
		return nil, fmt.Errorf(
			"two-level table needs positive sizes, got outer %d inner %d",
			outerSize, innerSize)
	}

	if numPages > outerSize*innerSize {
		return nil, fmt.Errorf("%d pages with %d x %d entries: %w",
			numPages, outerSize, innerSize, ErrAddressSpaceTooLarge)
	}

	t := &TwoLevelPageTable{
		numPages:  numPages,
		innerSize: innerSize,
		outer:     make([][]TranslationEntry, outerSize),
	}

	return t, nil
}

// Layout returns LayoutTwoLevel.
func (t *TwoLevelPageTable) Layout() Layout {
	return LayoutTwoLevel
}

// NumPages returns the number of virtual pages the table covers.
func (t *TwoLevelPageTable) NumPages() int {
	return t.numPages
}

// OuterSize returns the number of outer slots.
func (t *TwoLevelPageTable) OuterSize() int {
	return len(t.outer)
}

// InnerSize returns the number of entries in each inner block.
func (t *TwoLevelPageTable) InnerSize() int {
	return t.innerSize
}

// InnerAllocated tells if the inner block of an outer slot exists.
func (t *TwoLevelPageTable) InnerAllocated(outerIndex int) bool {
	if outerIndex < 0 || outerIndex >= len(t.outer) {
		return false
	}

	return t.outer[outerIndex] != nil
}

// NumInnerAllocated returns how many inner blocks exist.
func (t *TwoLevelPageTable) NumInnerAllocated() int {
	n := 0

	for _, inner := range t.outer {
		if inner != nil {
			n++
		}
	}

	return n
}

func (t *TwoLevelPageTable) split(vPage int) (outerIndex, innerIndex int) {
	return vPage / t.innerSize, vPage % t.innerSize
}

// Ensure allocates the inner block that covers vPage if it does not exist.
func (t *TwoLevelPageTable) Ensure(vPage int) error {
	if err := checkRange(t, vPage); err != nil {
		return err
	}

	outerIndex, _ := t.split(vPage)
	if t.outer[outerIndex] != nil {
		return nil
	}

	inner := make([]TranslationEntry, t.innerSize)
	for i := range inner {
		inner[i] = invalidEntry(outerIndex*t.innerSize + i)
	}

	t.outer[outerIndex] = inner

	return nil
}

func (t *TwoLevelPageTable) slot(vPage int) (*TranslationEntry, bool) {
	if vPage < 0 || vPage >= t.numPages {
		return nil, false
	}

	outerIndex, innerIndex := t.split(vPage)

	inner := t.outer[outerIndex]
	if inner == nil {
		return nil, false
	}

	return &inner[innerIndex], true
}

// Lookup returns the entry of vPage if its inner block exists.
func (t *TwoLevelPageTable) Lookup(vPage int) (*TranslationEntry, bool) {
	return t.slot(vPage)
}

// SetValid sets the valid bit of vPage, allocating its inner block if needed.
func (t *TwoLevelPageTable) SetValid(vPage int, valid bool) error {
	return setValid(t, vPage, valid)
}

// SetDirty sets the dirty bit of vPage, allocating its inner block if needed.
func (t *TwoLevelPageTable) SetDirty(vPage int, dirty bool) error {
	return setDirty(t, vPage, dirty)
}

// SetFrame sets the frame of vPage, allocating its inner block if needed.
func (t *TwoLevelPageTable) SetFrame(vPage int, frame int) error {
	return setFrame(t, vPage, frame)
}

// FindVirtualPageForFrame returns the valid page mapped to frame. Missing
// inner blocks are skipped.
func (t *TwoLevelPageTable) FindVirtualPageForFrame(frame int) (int, bool) {
	found, vPage := false, 0

	t.ForEachValid(func(e *TranslationEntry) {
		if !found && e.PhysicalFrame == frame {
			found, vPage = true, e.VirtualPage
		}
	})

	return vPage, found
}

// ForEachValid calls fn for every valid entry of every allocated block.
func (t *TwoLevelPageTable) ForEachValid(fn func(e *TranslationEntry)) {
	for _, inner := range t.outer {
		for j := range inner {
			if inner[j].Valid {
				fn(&inner[j])
			}
		}
	}
}

// Release drops every inner block. The outer array keeps its size.
func (t *TwoLevelPageTable) Release() {
	for i := range t.outer {
		t.outer[i] = nil
	}
}
