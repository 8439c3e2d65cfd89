package kernel

import (
	"context"
	"errors"

	"github.com/sarchlab/vmsim/mem/vm"
)

// Workload describes the memory accesses Run drives every process through.
type Workload struct {
	// Quantum is the number of accesses a process makes before the next
	// process is switched in.
	Quantum int

	// Steps is the number of accesses after which a process exits.
	Steps int

	// Stride is the distance between consecutive addresses, a multiple of 4.
	// Addresses wrap around at the end of the address space.
	Stride int

	// WriteEvery makes every n-th access a store. Zero means loads only.
	WriteEvery int

	// Progress, if set, is told about every access. A terminated process
	// reports its remaining steps at once.
	Progress ProgressTracker
}

// A ProgressTracker counts finished accesses.
type ProgressTracker interface {
	IncrementFinished(amount uint64)
}

// DefaultWorkload sweeps every page about twice per pass with a store on
// every fourth access. The stride is half a page rounded down to a word, and
// at least one word.
func DefaultWorkload(pageSize int) Workload {
	return Workload{
		Quantum:    8,
		Steps:      256,
		Stride:     max(pageSize/2/4*4, 4),
		WriteEvery: 4,
	}
}

// Run switches between the running processes round-robin until each has
// made its steps or been terminated.
func (k *Kernel) Run(ctx context.Context, w Workload) error {
	if w.Quantum <= 0 || w.Stride <= 0 || w.Stride%4 != 0 {
		return errors.New("workload needs a positive quantum and a positive stride that is a multiple of 4")
	}

	for {
		pids := k.runningPIDs()
		if len(pids) == 0 {
			return nil
		}

		for _, pid := range pids {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := k.Switch(pid); err != nil {
				continue
			}

			k.runQuantum(pid, w)
		}
	}
}

func (k *Kernel) runningPIDs() []vm.PID {
	var pids []vm.PID

	for _, info := range k.Processes() {
		if info.Status == Running {
			pids = append(pids, info.PID)
		}
	}

	return pids
}

func (k *Kernel) runQuantum(pid vm.PID, w Workload) {
	p, found := k.Process(pid)
	if !found {
		return
	}

	size := p.Space.NumPages() * p.Space.PageSize()

	for i := 0; i < w.Quantum; i++ {
		if p.Status() != Running {
			return
		}

		if p.steps >= w.Steps {
			_ = k.Exit(pid)
			return
		}

		addr := p.cursor
		p.cursor = (p.cursor + w.Stride) % size
		p.steps++
		w.report(1)

		var err error
		if w.WriteEvery > 0 && p.steps%w.WriteEvery == 0 {
			err = k.machine.WriteWord(addr, p.steps)
		} else {
			_, err = k.machine.ReadWord(addr)
		}

		if err != nil && p.Status() == Running {
			k.terminate(p, Terminated, err)
		}

		if p.Status() == Terminated {
			w.report(w.Steps - p.steps)
			return
		}
	}
}

func (w Workload) report(steps int) {
	if w.Progress != nil && steps > 0 {
		w.Progress.IncrementFinished(uint64(steps))
	}
}
