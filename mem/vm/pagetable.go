// Package vm provides the translation tables of the paging subsystem.
package vm

import (
	"fmt"
	"strings"
)

// Layout selects how a PageTable stores its entries.
type Layout int

// The supported page table layouts.
const (
	LayoutFlat Layout = iota
	LayoutTwoLevel
)

func (l Layout) String() string {
	switch l {
	case LayoutFlat:
		return "flat"
	case LayoutTwoLevel:
		return "two-level"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout converts a layout name, as printed by String, back to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat", "single", "linear":
		return LayoutFlat, nil
	case "two-level", "twolevel", "2level", "two_level":
		return LayoutTwoLevel, nil
	default:
		return 0, fmt.Errorf("unknown page table layout %q", s)
	}
}

// MarshalText encodes the layout by name.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts anything ParseLayout does.
func (l *Layout) UnmarshalText(text []byte) error {
	layout, err := ParseLayout(string(text))
	if err != nil {
		return err
	}

	*l = layout

	return nil
}

// A PageTable maps the virtual pages of one address space to physical frames.
type PageTable interface {
	// Layout reports how the table stores its entries.
	Layout() Layout

	// NumPages returns the number of virtual pages the table covers.
	NumPages() int

	// Ensure makes the entry of vPage addressable. Flat tables only check
	// the range; two-level tables allocate the inner block on first touch.
	Ensure(vPage int) error

	// Lookup returns the entry of vPage. The bool is false when the page is
	// out of range or, for two-level tables, its inner block does not exist.
	// The returned pointer stays valid until the table is released.
	Lookup(vPage int) (*TranslationEntry, bool)

	SetValid(vPage int, valid bool) error
	SetDirty(vPage int, dirty bool) error
	SetFrame(vPage int, frame int) error

	// FindVirtualPageForFrame scans for the valid entry backed by frame.
	FindVirtualPageForFrame(frame int) (int, bool)

	// ForEachValid calls fn for every valid entry, in virtual page order.
	ForEachValid(fn func(e *TranslationEntry))

	// Release drops all entries. The table must not be used afterwards.
	Release()
}

// NewPageTable creates an all-invalid page table of the given layout. The
// outer and inner sizes are only used by the two-level layout.
func NewPageTable(
	layout Layout,
	numPages, outerSize, innerSize int,
) (PageTable, error) {
	switch layout {
	case LayoutFlat:
		return NewFlatPageTable(numPages), nil
	case LayoutTwoLevel:
		return NewTwoLevelPageTable(numPages, outerSize, innerSize)
	default:
		return nil, fmt.Errorf("unknown page table layout %d", int(layout))
	}
}

// entrySource is the part that differs between layouts. Everything else is
// shared so both layouts behave the same.
type entrySource interface {
	NumPages() int
	slot(vPage int) (*TranslationEntry, bool)
	Ensure(vPage int) error
}

func checkRange(src entrySource, vPage int) error {
	if vPage < 0 || vPage >= src.NumPages() {
		return fmt.Errorf("virtual page %d of %d: %w",
			vPage, src.NumPages(), ErrAddressOutOfRange)
	}

	return nil
}

func mustEntry(src entrySource, vPage int) (*TranslationEntry, error) {
	if err := src.Ensure(vPage); err != nil {
		return nil, err
	}

	e, _ := src.slot(vPage)

	return e, nil
}

func setValid(src entrySource, vPage int, valid bool) error {
	e, err := mustEntry(src, vPage)
	if err != nil {
		return err
	}

	e.Valid = valid

	return nil
}

func setDirty(src entrySource, vPage int, dirty bool) error {
	e, err := mustEntry(src, vPage)
	if err != nil {
		return err
	}

	e.Dirty = dirty

	return nil
}

func setFrame(src entrySource, vPage int, frame int) error {
	e, err := mustEntry(src, vPage)
	if err != nil {
		return err
	}

	e.PhysicalFrame = frame

	return nil
}
