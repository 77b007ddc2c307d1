package twig

import (
	"time"

	"github.com/chararch/twig/status"
)

//RunExecution state of one pipeline run
type RunExecution struct {
	RunId           int64
	RunName         string
	RunStatus       status.BatchStatus
	RunContext      *BatchContext
	InputCount      int64
	SucceededCount  int64
	FailedCount     int64
	CheckpointCount int64
	FlushedSize     int64
	CreateTime      time.Time
	StartTime       time.Time
	EndTime         time.Time
	FailError       error
	Version         int64
}

func (execution *RunExecution) start() {
	execution.StartTime = time.Now()
	execution.RunStatus = status.STARTED
}

func (execution *RunExecution) finish(st status.BatchStatus, err error) {
	execution.RunStatus = st
	execution.FailError = err
	execution.EndTime = time.Now()
}

//Checkpoint a durable snapshot written by a flush
type Checkpoint struct {
	CheckpointId int64
	RunId        int64
	Index        int
	Location     string
	Size         int
	CreateTime   time.Time
}
