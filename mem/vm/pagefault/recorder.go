package pagefault

import (
	"context"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/hooking"
)

// FaultRow is what Recorder stores for one completed or failed fault.
type FaultRow struct {
	Seq         int
	PID         int
	Address     int
	VirtualPage int
	Frame       int
	Evicted     bool
	VictimPID   int
	VictimPage  int
	WroteBack   bool
	Error       string
}

// FaultTable is the table Recorder writes to.
const FaultTable = "page_faults"

// Recorder is a hook that stores one row per fault.
type Recorder struct {
	recorder  datarecording.DataRecorder
	tableName string
}

// NewRecorder creates the fault table in recorder.
func NewRecorder(recorder datarecording.DataRecorder) *Recorder {
	r := &Recorder{
		recorder:  recorder,
		tableName: FaultTable,
	}

	recorder.CreateTable(r.tableName, FaultRow{})

	return r
}

// TableName returns the table the rows go to.
func (r *Recorder) TableName() string {
	return r.tableName
}

// Func records the fault when it finishes.
func (r *Recorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosPageIn && ctx.Pos != HookPosFaultFailed {
		return
	}

	d, ok := ctx.Item.(FaultDetail)
	if !ok {
		return
	}

	row := FaultRow{
		Seq:         d.Seq,
		PID:         int(d.PID),
		Address:     d.Address,
		VirtualPage: d.VirtualPage,
		Frame:       d.Frame,
		Evicted:     d.Evicted,
		WroteBack:   d.WroteBack,
		VictimPID:   -1,
		VictimPage:  -1,
	}

	if d.Evicted {
		row.VictimPID = int(d.VictimPID)
		row.VictimPage = d.VictimPage
	}

	if d.Err != nil {
		row.Error = d.Err.Error()
	}

	r.recorder.InsertData(r.tableName, row)
}

// ReadFaults returns the recorded faults in the order they happened. A
// negative pid selects every process.
func ReadFaults(
	ctx context.Context,
	reader datarecording.DataReader,
	pid int,
) ([]FaultRow, error) {
	reader.MapTable(FaultTable, FaultRow{})

	params := datarecording.QueryParams{OrderBy: "Seq"}
	if pid >= 0 {
		params.Where = "PID = ?"
		params.Args = []any{pid}
	}

	results, _, err := reader.Query(ctx, FaultTable, params)
	if err != nil {
		return nil, err
	}

	rows := make([]FaultRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, *r.(*FaultRow))
	}

	return rows, nil
}
