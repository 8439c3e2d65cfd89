// Package machine is the CPU-emulator side of the paging subsystem: the
// register file, physical main memory, and the translation of every user
// memory access through the active page table.
package machine

import (
	"github.com/sarchlab/vmsim/mem/vm"
)

// Register indexes the user-visible register file.
type Register int

// Registers with a special meaning. The first NumGPRegs are general purpose.
const (
	StackReg     Register = 29
	RetAddrReg   Register = 31
	NumGPRegs    Register = 32
	HiReg        Register = 32
	LoReg        Register = 33
	PCReg        Register = 34
	NextPCReg    Register = 35
	PrevPCReg    Register = 36
	LoadReg      Register = 37
	LoadValueReg Register = 38
	BadVAddrReg  Register = 39
	NumTotalRegs Register = 40
)

// A Machine is what the paging subsystem needs from the CPU emulator.
type Machine interface {
	ReadRegister(r Register) int
	WriteRegister(r Register, value int)

	// MainMemory exposes physical memory. Frame f occupies bytes
	// [f*PageSize(), (f+1)*PageSize()).
	MainMemory() []byte
	PageSize() int
	NumFrames() int

	// SetPageTable installs the table every later access is translated
	// through. numPages bounds the addressable virtual pages.
	SetPageTable(pt vm.PageTable, numPages int)
	PageTable() (pt vm.PageTable, numPages int)
}

// FrameBytes returns the slice of main memory holding frame f.
func FrameBytes(m Machine, f int) []byte {
	start := f * m.PageSize()
	return m.MainMemory()[start : start+m.PageSize()]
}
