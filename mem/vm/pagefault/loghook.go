package pagefault

import (
	"log"

	"github.com/sarchlab/vmsim/hooking"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

var _ hooking.LogHook = (*LogHook)(nil)

// LogHook prints the progress of every page fault.
type LogHook struct {
	hooking.LogHookBase
}

// NewLogHook returns a LogHook that writes into the logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := new(LogHook)
	h.Logger = logger

	return h
}

// Func writes the fault information into the logger.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	d, ok := ctx.Item.(FaultDetail)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosPageFault:
		h.Printf("PAGE FAULT #%d: process %d requests virtual page %d",
			d.Seq, d.PID, d.VirtualPage)
	case HookPosEvict:
		policy := "unknown policy"
		if kind, ok := ctx.Detail.(replacement.Kind); ok {
			policy = kind.Describe()
		}

		h.Printf("swapping out process %d page %d from frame %d (written back: %t), chosen by %s",
			d.VictimPID, d.VictimPage, d.Frame, d.WroteBack, policy)
	case HookPosPageIn:
		h.Printf("swapping in process %d virtual page %d to frame %d",
			d.PID, d.VirtualPage, d.Frame)
	case HookPosFaultFailed:
		h.Printf("fault #%d of process %d on page %d failed: %v",
			d.Seq, d.PID, d.VirtualPage, d.Err)
	}
}
