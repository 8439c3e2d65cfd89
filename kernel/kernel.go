// Package kernel runs user programs on the paging subsystem. It owns the
// process table, hands page faults of the running process to the fault
// handler, and terminates processes whose faults cannot be served.
package kernel

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/sarchlab/vmsim/config"
	"github.com/sarchlab/vmsim/machine"
	"github.com/sarchlab/vmsim/mem/frame"
	"github.com/sarchlab/vmsim/mem/swap"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addrspace"
	"github.com/sarchlab/vmsim/mem/vm/pagefault"
)

// ErrNoSuchProcess is returned for an unknown or finished PID.
var ErrNoSuchProcess = errors.New("no such process")

// ErrNoCurrentProcess is returned when a fault arrives while no process runs.
var ErrNoCurrentProcess = errors.New("no process is running")

// Kernel is the process manager of one simulated machine.
//
// Lock order: the fault handler's lock, then mu.
type Kernel struct {
	config       config.Config
	loader       Loader
	fs           swap.FileSystem
	logger       *log.Logger
	machine      *machine.Simple
	allocator    *frame.Allocator
	owners       *frame.OwnershipTable
	handler      *pagefault.Handler
	spaceBuilder addrspace.Builder

	mu        sync.Mutex
	processes map[vm.PID]*Process
	current   *Process
	nextPID   vm.PID
}

// Config returns the configuration the kernel was built with.
func (k *Kernel) Config() config.Config {
	return k.config
}

// Machine returns the emulator.
func (k *Kernel) Machine() *machine.Simple {
	return k.machine
}

// Handler returns the page fault handler.
func (k *Kernel) Handler() *pagefault.Handler {
	return k.handler
}

// FileSystem returns where swap files are kept.
func (k *Kernel) FileSystem() swap.FileSystem {
	return k.fs
}

// Resolve returns the running address space with the given ID.
func (k *Kernel) Resolve(id vm.ASID) (pagefault.Pager, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, p := range k.processes {
		if p.status == Running && p.Space.ID() == id {
			return p.Space, true
		}
	}

	return nil, false
}

// StartProcess loads the named program into a new address space and makes
// it the running process.
func (k *Kernel) StartProcess(name string) (*Process, error) {
	k.logger.Printf("Attempting to open file %s", name)

	exe, err := k.loader.Open(name)
	if err != nil {
		return nil, fmt.Errorf("unable to open file %s: %w", name, err)
	}
	defer exe.Close()

	for _, line := range k.config.Banner() {
		k.logger.Print(line)
	}

	k.mu.Lock()
	pid := k.nextPID
	k.nextPID++
	k.mu.Unlock()

	space, err := k.spaceBuilder.Build(exe, pid)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}

	if k.config.Verbose {
		k.logger.Printf("Swap file %s created for process %d (%d pages)",
			space.SwapFileName(), pid, space.NumPages())
	}

	p := &Process{
		PID:   pid,
		Name:  name,
		Space: space,
	}

	k.mu.Lock()
	k.processes[pid] = p
	k.mu.Unlock()

	k.switchTo(p, func() { space.InitRegisters() })

	return p, nil
}

// Switch makes pid the running process, saving the registers of the
// process it replaces.
func (k *Kernel) Switch(pid vm.PID) error {
	p, err := k.runnable(pid)
	if err != nil {
		return err
	}

	k.switchTo(p, func() { k.loadRegisters(p) })

	return nil
}

func (k *Kernel) switchTo(p *Process, setRegisters func()) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.current == p {
		return
	}

	if k.current != nil && k.current.status == Running {
		k.saveRegisters(k.current)
		k.current.Space.SaveState()
	}

	k.current = p
	setRegisters()
	p.Space.RestoreState()
}

func (k *Kernel) saveRegisters(p *Process) {
	for r := machine.Register(0); r < machine.NumTotalRegs; r++ {
		p.registers[r] = k.machine.ReadRegister(r)
	}
}

func (k *Kernel) loadRegisters(p *Process) {
	for r := machine.Register(0); r < machine.NumTotalRegs; r++ {
		k.machine.WriteRegister(r, p.registers[r])
	}
}

func (k *Kernel) runnable(pid vm.PID) (*Process, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, found := k.processes[pid]
	if !found || p.status != Running {
		return nil, fmt.Errorf("pid %d: %w", pid, ErrNoSuchProcess)
	}

	return p, nil
}

// Current returns the running process, or nil.
func (k *Kernel) Current() *Process {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.current
}

// HandlePageFault serves a fault of the running process at addr. If the
// fault cannot be served the process is terminated and its resources are
// freed.
func (k *Kernel) HandlePageFault(addr int) error {
	p := k.Current()
	if p == nil {
		return ErrNoCurrentProcess
	}

	err := k.handler.HandlePageFault(p.Space, addr)
	if err == nil {
		return nil
	}

	k.terminate(p, Terminated, err)

	return fmt.Errorf("pid %d terminated: %w", p.PID, err)
}

// Exit ends a process normally.
func (k *Kernel) Exit(pid vm.PID) error {
	p, err := k.runnable(pid)
	if err != nil {
		return err
	}

	k.terminate(p, Exited, nil)

	return nil
}

// Shutdown exits every running process.
func (k *Kernel) Shutdown() {
	for _, info := range k.Processes() {
		if info.Status == Running {
			_ = k.Exit(info.PID)
		}
	}
}

func (k *Kernel) terminate(p *Process, status Status, cause error) {
	var destroyErr error

	k.handler.Do(func() {
		destroyErr = p.Space.Destroy()

		k.mu.Lock()
		defer k.mu.Unlock()

		p.status = status
		p.err = errors.Join(cause, destroyErr)

		if k.current == p {
			k.current = nil
		}
	})

	if cause != nil {
		k.logger.Printf("Process %d terminated: %v", p.PID, cause)
	}

	if destroyErr != nil {
		k.logger.Printf("Process %d: cleaning up: %v", p.PID, destroyErr)
	}

	if k.config.Verbose {
		k.logger.Printf("PRINTING MEM MAP\n%s", k.MemoryMap())
	}
}

// Process returns the process with the given PID, finished or not.
func (k *Kernel) Process(pid vm.PID) (*Process, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, found := k.processes[pid]

	return p, found
}

// Processes returns a snapshot of every process, ordered by PID.
func (k *Kernel) Processes() []ProcessInfo {
	var infos []ProcessInfo

	k.handler.Do(func() {
		k.mu.Lock()
		defer k.mu.Unlock()

		for _, p := range k.processes {
			infos = append(infos, p.info())
		}
	})

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].PID < infos[j].PID
	})

	return infos
}

// FrameSnapshot returns the ownership of every physical frame.
func (k *Kernel) FrameSnapshot() []frame.SlotInfo {
	var slots []frame.SlotInfo

	k.handler.Do(func() {
		slots = k.owners.Snapshot()
	})

	return slots
}

// NumFreeFrames returns how many frames are free.
func (k *Kernel) NumFreeFrames() int {
	n := 0

	k.handler.Do(func() {
		n = k.allocator.NumFree()
	})

	return n
}

// MemoryMap returns the allocator bitmap in printable form.
func (k *Kernel) MemoryMap() string {
	var s string

	k.handler.Do(func() {
		s = k.allocator.String()
	})

	return s
}
