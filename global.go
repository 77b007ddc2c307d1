package twig

import (
	"database/sql"
	"os"
	"runtime"
	"time"

	"github.com/chararch/twig/internal/logs"
)

//log
var logger logs.Logger = logs.NewLogger(os.Stdout, logs.Info)

//SetLogger set a logger instance for twig
func SetLogger(l logs.Logger) {
	logger = l
}

//run defaults
const (
	DefaultThreshold           = 1000000
	DefaultPressureMinInterval = 50 * time.Millisecond
	DefaultPressureMaxInterval = 2 * time.Second
	DefaultFailureSampleSize   = 100
	DefaultJobPoolSize         = 10
)

//DefaultWorkers number of workers used when none is configured
var DefaultWorkers = runtime.NumCPU()

//job pool, serves RunAsync
var jobPool = mustWorkerPool(DefaultJobPoolSize)

func mustWorkerPool(size int) *taskPool {
	pool, err := newWorkerPool(size)
	if err != nil {
		panic(err)
	}
	return pool
}

//SetMaxRunningJobs set max number of runs launched by RunAsync in parallel
func SetMaxRunningJobs(size int) {
	jobPool.SetMaxSize(size)
}

//repository
var repository Repository = NewMemoryRepository()

//SetRepository register a Repository used to persist run executions and checkpoints
func SetRepository(repo Repository) {
	if repo == nil {
		panic("repository must not be nil")
	}
	repository = repo
}

//SetDB register a *sql.DB instance, run executions and checkpoints will be persisted to it
func SetDB(sqlDb *sql.DB) {
	if sqlDb == nil {
		panic("sqlDb must not be nil")
	}
	repository = NewSQLRepository(sqlDb)
}
