package status

//BatchStatus status of a pipeline run
type BatchStatus string

const (
	//STARTING run has been created but workers are not started yet
	STARTING BatchStatus = "STARTING"
	//STARTED run is dispatching tasks
	STARTED BatchStatus = "STARTED"
	//STOPPING run was asked to stop and is draining in-flight tasks
	STOPPING BatchStatus = "STOPPING"
	//STOPPED run was stopped before all inputs were dispatched
	STOPPED BatchStatus = "STOPPED"
	//COMPLETED every input was processed and every checkpoint is durable
	COMPLETED BatchStatus = "COMPLETED"
	//PARTIAL every checkpoint is durable but some inputs failed
	PARTIAL BatchStatus = "PARTIAL"
	//FAILED a checkpoint could not be written
	FAILED BatchStatus = "FAILED"
	//UNKNOWN run aborted due to unknown reason
	UNKNOWN BatchStatus = "UNKNOWN"
)

var statuses = map[BatchStatus]int{
	STARTING:  0,
	STARTED:   1,
	STOPPING:  2,
	COMPLETED: 3,
	PARTIAL:   4,
	STOPPED:   5,
	FAILED:    6,
	UNKNOWN:   7,
}

//And returns the more severe of two statuses
func (s BatchStatus) And(other BatchStatus) BatchStatus {
	i1, ok1 := statuses[s]
	i2, ok2 := statuses[other]
	if ok1 && ok2 {
		if i1 < i2 {
			return other
		}
		return s
	} else if ok1 {
		return other
	}
	return s
}

//Finished reports whether the status is terminal
func (s BatchStatus) Finished() bool {
	switch s {
	case STOPPED, COMPLETED, PARTIAL, FAILED, UNKNOWN:
		return true
	}
	return false
}
