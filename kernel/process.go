package kernel

import (
	"fmt"

	"github.com/sarchlab/vmsim/machine"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addrspace"
)

// Status is the life-cycle state of a process.
type Status int

// Process states.
const (
	Running Status = iota
	Exited
	Terminated
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Process is a user program and its address space.
type Process struct {
	PID   vm.PID
	Name  string
	Space *addrspace.AddressSpace

	status    Status
	err       error
	registers [machine.NumTotalRegs]int

	// workload progress
	cursor int
	steps  int
}

// Status returns the state of the process.
func (p *Process) Status() Status {
	return p.status
}

// Err returns the error that terminated the process, if any.
func (p *Process) Err() error {
	return p.err
}

// ProcessInfo is a snapshot of one process.
type ProcessInfo struct {
	PID           vm.PID          `json:"pid"`
	Name          string          `json:"name"`
	Status        Status          `json:"status"`
	Error         string          `json:"error,omitempty"`
	NumPages      int             `json:"num_pages"`
	ResidentPages []int           `json:"resident_pages"`
	SwapFile      string          `json:"swap_file"`
	Stats         addrspace.Stats `json:"stats"`
}

func (p *Process) info() ProcessInfo {
	info := ProcessInfo{
		PID:           p.PID,
		Name:          p.Name,
		Status:        p.status,
		NumPages:      p.Space.NumPages(),
		ResidentPages: p.Space.ResidentPages(),
		SwapFile:      p.Space.SwapFileName(),
		Stats:         p.Space.Stats(),
	}

	if p.err != nil {
		info.Error = p.err.Error()
	}

	return info
}
