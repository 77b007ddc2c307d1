package twig

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/chararch/twig/status"
	"github.com/chararch/twig/util"
	"github.com/pkg/errors"
)

//Repository persists run executions and their checkpoints
type Repository interface {
	SaveRun(ctx context.Context, execution *RunExecution) BatchError
	SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) BatchError
	FindRun(ctx context.Context, runId int64) (*RunExecution, BatchError)
	FindCheckpoints(ctx context.Context, runId int64) ([]*Checkpoint, BatchError)
}

//Schema DDL of the tables used by SQLRepository (MySQL)
const Schema = `
CREATE TABLE IF NOT EXISTS twig_run_execution (
  run_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  run_name VARCHAR(128) NOT NULL,
  status VARCHAR(16) NOT NULL,
  run_context TEXT,
  input_count BIGINT NOT NULL DEFAULT 0,
  succeeded_count BIGINT NOT NULL DEFAULT 0,
  failed_count BIGINT NOT NULL DEFAULT 0,
  checkpoint_count BIGINT NOT NULL DEFAULT 0,
  flushed_size BIGINT NOT NULL DEFAULT 0,
  create_time DATETIME(6) NOT NULL,
  start_time DATETIME(6) NULL,
  end_time DATETIME(6) NULL,
  exit_message TEXT,
  last_updated DATETIME(6) NOT NULL,
  version BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS twig_checkpoint (
  checkpoint_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  run_id BIGINT NOT NULL,
  rotation_index INT NOT NULL,
  location VARCHAR(1024) NOT NULL,
  size BIGINT NOT NULL,
  create_time DATETIME(6) NOT NULL,
  KEY idx_run_id (run_id)
);
`

//MemoryRepository keeps executions in process, used when no database is registered
type MemoryRepository struct {
	mu          sync.Mutex
	runSeq      int64
	cpSeq       int64
	runs        map[int64]*RunExecution
	checkpoints map[int64][]*Checkpoint
}

//NewMemoryRepository new instance
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		runs:        map[int64]*RunExecution{},
		checkpoints: map[int64][]*Checkpoint{},
	}
}

func (r *MemoryRepository) SaveRun(ctx context.Context, execution *RunExecution) BatchError {
	r.mu.Lock()
	defer r.mu.Unlock()
	if execution.RunId == 0 {
		r.runSeq++
		execution.RunId = r.runSeq
		execution.Version = 1
	} else {
		stored, ok := r.runs[execution.RunId]
		if !ok || stored.Version != execution.Version {
			return NewBatchError(ErrCodeDbFail, "update run execution failed, runId:%v, version:%v", execution.RunId, execution.Version)
		}
		execution.Version++
	}
	cp := *execution
	if execution.RunContext != nil {
		cp.RunContext = execution.RunContext.DeepCopy()
	}
	r.runs[execution.RunId] = &cp
	return nil
}

func (r *MemoryRepository) SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) BatchError {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cpSeq++
	checkpoint.CheckpointId = r.cpSeq
	cp := *checkpoint
	r.checkpoints[checkpoint.RunId] = append(r.checkpoints[checkpoint.RunId], &cp)
	return nil
}

func (r *MemoryRepository) FindRun(ctx context.Context, runId int64) (*RunExecution, BatchError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.runs[runId]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (r *MemoryRepository) FindCheckpoints(ctx context.Context, runId int64) ([]*Checkpoint, BatchError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*Checkpoint, 0, len(r.checkpoints[runId]))
	for _, c := range r.checkpoints[runId] {
		cp := *c
		result = append(result, &cp)
	}
	return result, nil
}

//SQLRepository persists executions into twig_run_execution and twig_checkpoint
type SQLRepository struct {
	db *sql.DB
}

//NewSQLRepository new instance
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

//CreateSchema creates the tables if they do not exist
func (r *SQLRepository) CreateSchema(ctx context.Context) BatchError {
	for _, stmt := range splitStatements(Schema) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return NewBatchError(ErrCodeDbFail, "create schema failed", err)
		}
	}
	return nil
}

func splitStatements(ddl string) []string {
	var result []string
	start := 0
	for i := 0; i < len(ddl); i++ {
		if ddl[i] == ';' {
			if stmt := strings.TrimSpace(ddl[start:i]); stmt != "" {
				result = append(result, stmt)
			}
			start = i + 1
		}
	}
	return result
}

func (r *SQLRepository) SaveRun(ctx context.Context, execution *RunExecution) BatchError {
	runContext, err := util.JsonString(execution.RunContext)
	if err != nil {
		return NewBatchError(ErrCodeGeneral, "serialize run context failed", err)
	}
	exitMessage := ""
	if execution.FailError != nil {
		exitMessage = execution.FailError.Error()
	}
	if execution.RunId == 0 {
		res, err := r.db.ExecContext(ctx, "insert into twig_run_execution(run_name, status, run_context, input_count, succeeded_count, failed_count, checkpoint_count, flushed_size, create_time, start_time, end_time, exit_message, last_updated, version) values(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			execution.RunName, string(execution.RunStatus), runContext, execution.InputCount, execution.SucceededCount, execution.FailedCount, execution.CheckpointCount, execution.FlushedSize,
			execution.CreateTime, nullTime(execution.StartTime), nullTime(execution.EndTime), exitMessage, time.Now(), 1)
		if err != nil {
			return NewBatchError(ErrCodeDbFail, "insert run execution failed", err)
		}
		id, _ := res.LastInsertId()
		if id > 0 {
			execution.RunId = id
		}
		execution.Version = 1
		return nil
	}
	res, err := r.db.ExecContext(ctx, "update twig_run_execution set status=?, run_context=?, input_count=?, succeeded_count=?, failed_count=?, checkpoint_count=?, flushed_size=?, start_time=?, end_time=?, exit_message=?, last_updated=?, version=? where run_id=? and version=?",
		string(execution.RunStatus), runContext, execution.InputCount, execution.SucceededCount, execution.FailedCount, execution.CheckpointCount, execution.FlushedSize,
		nullTime(execution.StartTime), nullTime(execution.EndTime), exitMessage, time.Now(), execution.Version+1, execution.RunId, execution.Version)
	if err != nil {
		return NewBatchError(ErrCodeDbFail, "update run execution failed", err)
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected <= 0 {
		return NewBatchError(ErrCodeDbFail, "update run execution failed", errors.Errorf("stale version, runId:%v, version:%v", execution.RunId, execution.Version))
	}
	execution.Version++
	return nil
}

func (r *SQLRepository) SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) BatchError {
	res, err := r.db.ExecContext(ctx, "insert into twig_checkpoint(run_id, rotation_index, location, size, create_time) values(?, ?, ?, ?, ?)",
		checkpoint.RunId, checkpoint.Index, checkpoint.Location, checkpoint.Size, checkpoint.CreateTime)
	if err != nil {
		return NewBatchError(ErrCodeDbFail, "insert checkpoint failed", err)
	}
	id, _ := res.LastInsertId()
	if id > 0 {
		checkpoint.CheckpointId = id
	}
	return nil
}

func (r *SQLRepository) FindRun(ctx context.Context, runId int64) (*RunExecution, BatchError) {
	rows, err := r.db.QueryContext(ctx, "select run_id, run_name, status, run_context, input_count, succeeded_count, failed_count, checkpoint_count, flushed_size, create_time, start_time, end_time, exit_message, version from twig_run_execution where run_id=?", runId)
	if err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "query run execution failed", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	execution := &RunExecution{RunContext: NewBatchContext()}
	var st string
	var runContext, exitMessage sql.NullString
	var startTime, endTime sql.NullTime
	err = rows.Scan(&execution.RunId, &execution.RunName, &st, &runContext, &execution.InputCount, &execution.SucceededCount, &execution.FailedCount,
		&execution.CheckpointCount, &execution.FlushedSize, &execution.CreateTime, &startTime, &endTime, &exitMessage, &execution.Version)
	if err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "scan run execution failed", err)
	}
	execution.RunStatus = status.BatchStatus(st)
	execution.StartTime = startTime.Time
	execution.EndTime = endTime.Time
	if runContext.Valid && runContext.String != "" && runContext.String != "null" {
		if err = util.ParseJson(runContext.String, execution.RunContext); err != nil {
			return nil, NewBatchError(ErrCodeGeneral, "parse run context failed", err)
		}
	}
	if exitMessage.Valid && exitMessage.String != "" {
		execution.FailError = errors.New(exitMessage.String)
	}
	return execution, nil
}

func (r *SQLRepository) FindCheckpoints(ctx context.Context, runId int64) ([]*Checkpoint, BatchError) {
	rows, err := r.db.QueryContext(ctx, "select checkpoint_id, run_id, rotation_index, location, size, create_time from twig_checkpoint where run_id=? order by rotation_index", runId)
	if err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "query checkpoints failed", err)
	}
	defer rows.Close()

	result := make([]*Checkpoint, 0)
	for rows.Next() {
		cp := &Checkpoint{}
		if err = rows.Scan(&cp.CheckpointId, &cp.RunId, &cp.Index, &cp.Location, &cp.Size, &cp.CreateTime); err != nil {
			return nil, NewBatchError(ErrCodeDbFail, "scan checkpoint failed", err)
		}
		result = append(result, cp)
	}
	if err = rows.Err(); err != nil {
		return nil, NewBatchError(ErrCodeDbFail, "iterate checkpoints failed", err)
	}
	return result, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
