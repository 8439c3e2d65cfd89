package vm

import "errors"

// Errors reported by the paging subsystem. Callers wrap them with context
// and match them with errors.Is.
var (
	// ErrBadExecutableFormat means the executable header failed the magic
	// check. The process never starts.
	ErrBadExecutableFormat = errors.New("bad executable format")

	// ErrBackingStoreCreateFailed means the swap file of a new address space
	// could not be created or opened.
	ErrBackingStoreCreateFailed = errors.New("backing store create failed")

	// ErrBackingStoreIO means a swap-file read or write failed or moved fewer
	// bytes than a page.
	ErrBackingStoreIO = errors.New("backing store I/O error")

	// ErrOutOfMemory means no frame is free and the replacement policy does
	// not evict.
	ErrOutOfMemory = errors.New("out of physical memory")

	// ErrPageNotResident means a frame that should hold a page of an address
	// space is not mapped by that address space.
	ErrPageNotResident = errors.New("page not resident")

	// ErrNoVictimAvailable means the replacement policy found no occupied
	// frame to evict.
	ErrNoVictimAvailable = errors.New("no victim available")

	// ErrAddressOutOfRange means a virtual page lies outside the address
	// space.
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrAddressSpaceTooLarge means a two-level table cannot cover the
	// requested number of pages.
	ErrAddressSpaceTooLarge = errors.New("address space too large for page table")

	// ErrReadOnly means a store hit a read-only page.
	ErrReadOnly = errors.New("write to read-only page")
)
