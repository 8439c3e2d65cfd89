package machine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
)

// Exceptions raised by Translate.
var (
	ErrPageFault    = errors.New("page fault")
	ErrBusError     = errors.New("bus error")
	ErrAddressAlign = errors.New("unaligned address")
	ErrNoPageTable  = errors.New("no page table installed")
)

// A FaultHandler services a page fault at a virtual address. Returning nil
// means the access can be retried.
type FaultHandler func(addr int) error

// Stats counts translations done by a Simple machine.
type Stats struct {
	Accesses int
	Faults   int
}

// Simple is a minimal single-core emulator. It does not decode
// instructions; it only performs loads and stores the way the instruction
// interpreter would.
type Simple struct {
	registers     [NumTotalRegs]int
	mainMemory    []byte
	pageSize      int
	numFrames     int
	pageTable     vm.PageTable
	pageTableSize int
	faultHandler  FaultHandler
	stats         Stats
}

// NewSimple creates a machine with numFrames frames of pageSize bytes.
func NewSimple(numFrames, pageSize int) *Simple {
	return &Simple{
		mainMemory: make([]byte, numFrames*pageSize),
		pageSize:   pageSize,
		numFrames:  numFrames,
	}
}

// ReadRegister returns the value of register r.
func (m *Simple) ReadRegister(r Register) int {
	return m.registers[r]
}

// WriteRegister sets register r.
func (m *Simple) WriteRegister(r Register, value int) {
	m.registers[r] = value
}

// MainMemory returns physical memory.
func (m *Simple) MainMemory() []byte {
	return m.mainMemory
}

// PageSize returns the page size in bytes.
func (m *Simple) PageSize() int {
	return m.pageSize
}

// NumFrames returns the number of physical frames.
func (m *Simple) NumFrames() int {
	return m.numFrames
}

// SetPageTable installs the active page table.
func (m *Simple) SetPageTable(pt vm.PageTable, numPages int) {
	m.pageTable = pt
	m.pageTableSize = numPages
}

// PageTable returns the active page table.
func (m *Simple) PageTable() (vm.PageTable, int) {
	return m.pageTable, m.pageTableSize
}

// SetFaultHandler sets the function called when an access faults.
func (m *Simple) SetFaultHandler(h FaultHandler) {
	m.faultHandler = h
}

// Stats returns the access counters.
func (m *Simple) Stats() Stats {
	return m.stats
}

// Translate converts a virtual address to a physical one, setting the use
// bit and, for writes, the dirty bit of the page. A missing or invalid
// translation returns ErrPageFault and records the address in BadVAddrReg.
func (m *Simple) Translate(addr, size int, writing bool) (int, error) {
	if size != 1 && size != 2 && size != 4 {
		return 0, fmt.Errorf("access size %d: %w", size, ErrAddressAlign)
	}

	if addr%size != 0 {
		return 0, fmt.Errorf("address %#x size %d: %w",
			addr, size, ErrAddressAlign)
	}

	if m.pageTable == nil {
		return 0, ErrNoPageTable
	}

	vPage, offset := addr/m.pageSize, addr%m.pageSize
	if addr < 0 || vPage >= m.pageTableSize {
		m.registers[BadVAddrReg] = addr
		return 0, fmt.Errorf("address %#x: %w", addr, vm.ErrAddressOutOfRange)
	}

	entry, found := m.pageTable.Lookup(vPage)
	if !found || !entry.Valid {
		m.registers[BadVAddrReg] = addr
		return 0, fmt.Errorf("address %#x: %w", addr, ErrPageFault)
	}

	if entry.ReadOnly && writing {
		m.registers[BadVAddrReg] = addr
		return 0, fmt.Errorf("address %#x: %w", addr, vm.ErrReadOnly)
	}

	if entry.PhysicalFrame < 0 || entry.PhysicalFrame >= m.numFrames {
		return 0, fmt.Errorf("frame %d: %w", entry.PhysicalFrame, ErrBusError)
	}

	entry.Referenced = true
	if writing {
		entry.Dirty = true
	}

	return entry.PhysicalFrame*m.pageSize + offset, nil
}

// translateWithRetry faults the page in once and tries again.
func (m *Simple) translateWithRetry(addr, size int, writing bool) (int, error) {
	m.stats.Accesses++

	pAddr, err := m.Translate(addr, size, writing)
	if !errors.Is(err, ErrPageFault) {
		return pAddr, err
	}

	m.stats.Faults++

	if m.faultHandler == nil {
		return 0, err
	}

	if err := m.faultHandler(addr); err != nil {
		return 0, err
	}

	return m.Translate(addr, size, writing)
}

// ReadMem loads size bytes at virtual address addr.
func (m *Simple) ReadMem(addr, size int) (int, error) {
	pAddr, err := m.translateWithRetry(addr, size, false)
	if err != nil {
		return 0, err
	}

	switch size {
	case 1:
		return int(m.mainMemory[pAddr]), nil
	case 2:
		return int(binary.LittleEndian.Uint16(m.mainMemory[pAddr:])), nil
	default:
		return int(int32(binary.LittleEndian.Uint32(m.mainMemory[pAddr:]))), nil
	}
}

// WriteMem stores the low size bytes of value at virtual address addr.
func (m *Simple) WriteMem(addr, size, value int) error {
	pAddr, err := m.translateWithRetry(addr, size, true)
	if err != nil {
		return err
	}

	switch size {
	case 1:
		m.mainMemory[pAddr] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(m.mainMemory[pAddr:], uint16(value))
	default:
		binary.LittleEndian.PutUint32(m.mainMemory[pAddr:], uint32(value))
	}

	return nil
}

// ReadWord loads the 4-byte word at addr.
func (m *Simple) ReadWord(addr int) (int, error) {
	return m.ReadMem(addr, 4)
}

// WriteWord stores a 4-byte word at addr.
func (m *Simple) WriteWord(addr, value int) error {
	return m.WriteMem(addr, 4, value)
}
