package vm

import "fmt"

// NoFrame marks a translation entry that is not backed by a physical frame.
const NoFrame = -1

// A TranslationEntry maps one virtual page to a physical frame.
type TranslationEntry struct {
	VirtualPage   int
	PhysicalFrame int
	Valid         bool
	Dirty         bool
	Referenced    bool
	ReadOnly      bool
}

func invalidEntry(vPage int) TranslationEntry {
	return TranslationEntry{
		VirtualPage:   vPage,
		PhysicalFrame: NoFrame,
	}
}

func (e TranslationEntry) String() string {
	return fmt.Sprintf("vpage %d -> frame %d (valid=%t dirty=%t use=%t ro=%t)",
		e.VirtualPage, e.PhysicalFrame,
		e.Valid, e.Dirty, e.Referenced, e.ReadOnly)
}
