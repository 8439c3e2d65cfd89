package pagefault

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vmsim/hooking"
	"github.com/sarchlab/vmsim/mem/vm"
)

type memoryRecorder struct {
	tables map[string][]any
}

func (r *memoryRecorder) CreateTable(name string, _ any) {
	r.tables[name] = nil
}

func (r *memoryRecorder) InsertData(name string, entry any) {
	r.tables[name] = append(r.tables[name], entry)
}

func (r *memoryRecorder) ListTables() []string {
	var names []string
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

func (r *memoryRecorder) Flush()       {}
func (r *memoryRecorder) Close() error { return nil }

var _ = Describe("Recorder", func() {
	var (
		backend  *memoryRecorder
		recorder *Recorder
	)

	BeforeEach(func() {
		backend = &memoryRecorder{tables: make(map[string][]any)}
		recorder = NewRecorder(backend)
	})

	It("should create the fault table", func() {
		Expect(backend.ListTables()).To(ConsistOf("page_faults"))
		Expect(recorder.TableName()).To(Equal("page_faults"))
	})

	It("should ignore intermediate positions", func() {
		recorder.Func(hooking.HookCtx{Pos: HookPosPageFault, Item: FaultDetail{}})
		recorder.Func(hooking.HookCtx{Pos: HookPosEvict, Item: FaultDetail{}})

		Expect(backend.tables["page_faults"]).To(BeEmpty())
	})

	It("should record a fault that evicted a page", func() {
		recorder.Func(hooking.HookCtx{
			Pos: HookPosPageIn,
			Item: FaultDetail{
				Seq: 5, PID: 2, Address: 520, VirtualPage: 4, Frame: 1,
				Evicted: true, VictimPID: 3, VictimPage: 7, WroteBack: true,
			},
		})

		Expect(backend.tables["page_faults"]).To(Equal([]any{FaultRow{
			Seq: 5, PID: 2, Address: 520, VirtualPage: 4, Frame: 1,
			Evicted: true, VictimPID: 3, VictimPage: 7, WroteBack: true,
		}}))
	})

	It("should record a failed fault", func() {
		recorder.Func(hooking.HookCtx{
			Pos: HookPosFaultFailed,
			Item: FaultDetail{
				Seq: 1, PID: 1, VirtualPage: 4, Frame: -1,
				Err: errors.Join(vm.ErrOutOfMemory),
			},
		})

		rows := backend.tables["page_faults"]
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].(FaultRow).Error).To(Equal("out of physical memory"))
		Expect(rows[0].(FaultRow).VictimPID).To(Equal(-1))
	})
})
