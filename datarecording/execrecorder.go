package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of a run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how the simulator was invoked.
type ExecRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []ExecInfo
}

// NewExecRecorder creates the exec_info table in recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		tableName: "exec_info",
		recorder:  recorder,
	}

	recorder.CreateTable(e.tableName, ExecInfo{})

	return e
}

// Start notes the start time, the command line and the working directory.
func (e *ExecRecorder) Start() {
	e.Note("Start Time", time.Now().Format("2006-01-02 15:04:05.000000000"))
	e.Note("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		e.Note("Working Directory", cwd)
	}
}

// Note adds a property, such as a configuration value.
func (e *ExecRecorder) Note(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes the buffered properties along with the end time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tableName, entry)
	}

	endTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(e.tableName, ExecInfo{"End Time", endTime})

	e.entries = nil

	e.recorder.Flush()
}
