package twig

import (
	"context"
	"time"

	"github.com/chararch/twig/status"
)

//Options everything a run needs
type Options[T Mergeable[T]] struct {
	Name      string
	Inputs    []string
	Factory   TaskFactory[T]
	NewResult func() T
	Sink      Sink[T]
	Threshold int
	Workers   int

	Pressure            PressurePredicate
	PressureMinInterval time.Duration
	PressureMaxInterval time.Duration

	//Repository defaults to the one registered by SetRepository or SetDB
	Repository          Repository
	Context             *BatchContext
	Listeners           []RunListener
	CheckpointListeners []CheckpointListener
}

//Report final outcome of a run
type Report struct {
	RunId       int64
	Name        string
	Status      status.BatchStatus
	Inputs      int
	Succeeded   int
	Failed      int
	Failures    []error
	Checkpoints []*Checkpoint
	Outputs     []string
	FlushedSize int
	Suspensions int64
	StartTime   time.Time
	EndTime     time.Time
	Err         error
}

func (opts *Options[T]) validate() BatchError {
	if len(opts.Inputs) == 0 {
		return NewBatchError(ErrCodeConfig, "no inputs given")
	}
	if isNil(opts.Sink) {
		return NewBatchError(ErrCodeConfig, "sink must not be nil")
	}
	if opts.Factory == nil {
		return NewBatchError(ErrCodeConfig, "task factory must not be nil")
	}
	if opts.Workers <= 0 {
		return NewBatchError(ErrCodeConfig, "workers must be positive, got:%v", opts.Workers)
	}
	return nil
}

type checkpointRecorder struct {
	repo      Repository
	execution *RunExecution
}

func (r *checkpointRecorder) AfterCheckpoint(ctx context.Context, checkpoint *Checkpoint) BatchError {
	checkpoint.RunId = r.execution.RunId
	return r.repo.SaveCheckpoint(ctx, checkpoint)
}

//Run drains every input through the pipeline and blocks until the final flush is durable.
//Cancelling ctx stops dispatch gracefully, in-flight tasks are not interrupted and their results are still flushed.
//Tasks receive a context carrying the values of ctx that is never cancelled.
//The returned error is non-nil for configuration errors or when a checkpoint could not be written
func Run[T Mergeable[T]](ctx context.Context, opts Options[T]) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = "twig"
	}
	source := NewFileTaskSource(opts.Inputs, opts.Factory)
	collector, err := NewCheckpointingCollector(opts.NewResult, opts.Sink, opts.Threshold)
	if err != nil {
		return nil, err
	}
	executor, err := NewSuspendingExecutor[T](source, collector, ExecutorOptions{
		Workers:             opts.Workers,
		Pressure:            opts.Pressure,
		PressureMinInterval: opts.PressureMinInterval,
		PressureMaxInterval: opts.PressureMaxInterval,
	})
	if err != nil {
		return nil, err
	}

	repo := opts.Repository
	if repo == nil {
		repo = repository
	}
	runCtx := opts.Context
	if runCtx == nil {
		runCtx = NewBatchContext()
	}
	execution := &RunExecution{
		RunName:    opts.Name,
		RunStatus:  status.STARTING,
		RunContext: runCtx,
		InputCount: int64(source.Len()),
		CreateTime: time.Now(),
	}
	if err := repo.SaveRun(ctx, execution); err != nil {
		logger.Error(ctx, "save run execution failed, runName:%v, err:%v", opts.Name, err)
		return nil, err
	}
	collector.AddCheckpointListener(&checkpointRecorder{repo: repo, execution: execution})
	for _, l := range opts.CheckpointListeners {
		collector.AddCheckpointListener(l)
	}
	for _, l := range opts.Listeners {
		if err := l.BeforeRun(ctx, execution); err != nil {
			logger.Error(ctx, "run listener failed before run, runId:%v, err:%v", execution.RunId, err)
			execution.finish(status.FAILED, err)
			_ = repo.SaveRun(ctx, execution)
			return nil, err
		}
	}

	execution.start()
	if err := repo.SaveRun(ctx, execution); err != nil {
		logger.Warn(ctx, "save run execution failed, runId:%v, err:%v", execution.RunId, err)
	}
	logger.Info(ctx, "run start, runId:%v, runName:%v, inputs:%v, workers:%v, threshold:%v", execution.RunId, opts.Name, source.Len(), opts.Workers, opts.Threshold)
	if err := executor.Start(ctx); err != nil {
		execution.finish(status.FAILED, err)
		_ = repo.SaveRun(ctx, execution)
		return nil, err
	}
	runErr := executor.Wait()

	//the final flush must happen even after cancellation
	flushCtx := context.WithoutCancel(ctx)
	flushErr := collector.Flush(flushCtx)

	var fatal error
	switch {
	case runErr != nil:
		fatal = runErr
	case collector.Err() != nil:
		fatal = collector.Err()
	case flushErr != nil:
		fatal = flushErr
	}
	stats := executor.Stats()
	st := status.COMPLETED
	switch {
	case fatal != nil:
		st = status.FAILED
	case source.TotalRemaining() > 0 || executor.Interrupted() || ctx.Err() != nil:
		st = status.STOPPED
	case stats.Failed > 0:
		st = status.PARTIAL
	}

	checkpoints := collector.Checkpoints()
	execution.SucceededCount = stats.Succeeded
	execution.FailedCount = stats.Failed
	execution.CheckpointCount = int64(len(checkpoints))
	execution.FlushedSize = int64(collector.FlushedSize())
	execution.finish(st, fatal)
	if err := repo.SaveRun(flushCtx, execution); err != nil {
		logger.Warn(flushCtx, "save run execution failed, runId:%v, err:%v", execution.RunId, err)
	}
	for _, l := range opts.Listeners {
		if err := l.AfterRun(flushCtx, execution); err != nil {
			logger.Warn(flushCtx, "run listener failed after run, runId:%v, err:%v", execution.RunId, err)
		}
	}

	report := &Report{
		RunId:       execution.RunId,
		Name:        opts.Name,
		Status:      st,
		Inputs:      source.Len(),
		Succeeded:   int(stats.Succeeded),
		Failed:      int(stats.Failed),
		Failures:    collector.Failures(),
		Checkpoints: checkpoints,
		FlushedSize: collector.FlushedSize(),
		Suspensions: stats.Suspensions,
		StartTime:   execution.StartTime,
		EndTime:     execution.EndTime,
		Err:         fatal,
	}
	for _, c := range checkpoints {
		report.Outputs = append(report.Outputs, c.Location)
	}
	logger.Info(flushCtx, "run end, runId:%v, status:%v, succeeded:%v, failed:%v, checkpoints:%v, flushedSize:%v, cost:%v",
		report.RunId, st, report.Succeeded, report.Failed, len(checkpoints), report.FlushedSize, report.EndTime.Sub(report.StartTime))
	if fatal != nil {
		return report, fatal
	}
	return report, nil
}

//RunAsync launches Run on the shared job pool, see SetMaxRunningJobs
func RunAsync[T Mergeable[T]](ctx context.Context, opts Options[T]) Future[*Report] {
	return submitFuture(ctx, jobPool, func() (*Report, error) {
		return Run(ctx, opts)
	})
}
