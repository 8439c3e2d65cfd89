package vm

// FlatPageTable keeps one entry per virtual page, indexed by the page number.
type FlatPageTable struct {
	entries []TranslationEntry
}

// NewFlatPageTable creates a flat table of numPages invalid entries.
func NewFlatPageTable(numPages int) *FlatPageTable {
	t := &FlatPageTable{
		entries: make([]TranslationEntry, numPages),
	}

	for i := range t.entries {
		t.entries[i] = invalidEntry(i)
	}

	return t
}

// Layout returns LayoutFlat.
func (t *FlatPageTable) Layout() Layout {
	return LayoutFlat
}

// NumPages returns the number of entries.
func (t *FlatPageTable) NumPages() int {
	return len(t.entries)
}

// Ensure checks that vPage is inside the table.
func (t *FlatPageTable) Ensure(vPage int) error {
	return checkRange(t, vPage)
}

func (t *FlatPageTable) slot(vPage int) (*TranslationEntry, bool) {
	if vPage < 0 || vPage >= len(t.entries) {
		return nil, false
	}

	return &t.entries[vPage], true
}

// Lookup returns the entry of vPage.
func (t *FlatPageTable) Lookup(vPage int) (*TranslationEntry, bool) {
	return t.slot(vPage)
}

// SetValid sets the valid bit of vPage.
func (t *FlatPageTable) SetValid(vPage int, valid bool) error {
	return setValid(t, vPage, valid)
}

// SetDirty sets the dirty bit of vPage.
func (t *FlatPageTable) SetDirty(vPage int, dirty bool) error {
	return setDirty(t, vPage, dirty)
}

// SetFrame sets the physical frame of vPage.
func (t *FlatPageTable) SetFrame(vPage int, frame int) error {
	return setFrame(t, vPage, frame)
}

// FindVirtualPageForFrame returns the valid page mapped to frame.
func (t *FlatPageTable) FindVirtualPageForFrame(frame int) (int, bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Valid && e.PhysicalFrame == frame {
			return e.VirtualPage, true
		}
	}

	return 0, false
}

// ForEachValid calls fn for every valid entry.
func (t *FlatPageTable) ForEachValid(fn func(e *TranslationEntry)) {
	for i := range t.entries {
		if t.entries[i].Valid {
			fn(&t.entries[i])
		}
	}
}

// Release drops the entries.
func (t *FlatPageTable) Release() {
	t.entries = nil
}
