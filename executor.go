package twig

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/errgroup"
)

//ExecutorState lifecycle of a SuspendingExecutor
type ExecutorState int32

const (
	StateIdle ExecutorState = iota
	StateRunning
	StateDraining
	StateFinished
)

func (s ExecutorState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateFinished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

//Callback receives exactly one notification per dispatched task. Calls are never concurrent.
//An error returned by OnSuccess is fatal: dispatch stops and in-flight tasks drain
type Callback[T any] interface {
	OnSuccess(ctx context.Context, result T) error
	OnFailure(ctx context.Context, err error)
}

//ExecutorOptions sizing and pressure policy of a SuspendingExecutor
type ExecutorOptions struct {
	Workers             int
	Pressure            PressurePredicate
	PressureMinInterval time.Duration
	PressureMaxInterval time.Duration
}

//ExecutorStats counters observed during a run
type ExecutorStats struct {
	Submitted   int64
	Succeeded   int64
	Failed      int64
	Suspensions int64
}

type completion[T any] struct {
	task   Task[T]
	result T
	err    error
}

//SuspendingExecutor drains a TaskSource through a bounded worker pool, pausing dispatch under pressure
type SuspendingExecutor[T any] struct {
	source   TaskSource[T]
	callback Callback[T]
	opts     ExecutorOptions
	pool     *taskPool

	state       atomic.Int32
	interrupted atomic.Bool
	inflight    sync.WaitGroup
	stopCh      chan struct{}
	stopOnce    sync.Once
	done        chan struct{}

	mu        sync.Mutex
	err       error
	listeners []FinishedListener

	submitted   atomic.Int64
	succeeded   atomic.Int64
	failed      atomic.Int64
	suspensions atomic.Int64
}

//NewSuspendingExecutor new instance
func NewSuspendingExecutor[T any](source TaskSource[T], callback Callback[T], opts ExecutorOptions) (*SuspendingExecutor[T], BatchError) {
	if source == nil {
		return nil, NewBatchError(ErrCodeConfig, "task source must not be nil")
	}
	if callback == nil {
		return nil, NewBatchError(ErrCodeConfig, "callback must not be nil")
	}
	if opts.Workers <= 0 {
		return nil, NewBatchError(ErrCodeConfig, "workers must be positive, got:%v", opts.Workers)
	}
	if opts.Pressure == nil {
		opts.Pressure = NoPressure
	}
	if opts.PressureMinInterval <= 0 {
		opts.PressureMinInterval = DefaultPressureMinInterval
	}
	if opts.PressureMaxInterval < opts.PressureMinInterval {
		opts.PressureMaxInterval = opts.PressureMinInterval
	}
	return &SuspendingExecutor[T]{
		source:   source,
		callback: callback,
		opts:     opts,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

//Start spawns the worker pool, the dispatch loop and the completion consumer
func (e *SuspendingExecutor[T]) Start(ctx context.Context) BatchError {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return NewBatchError(ErrCodeConfig, "executor already started, state:%v", e.State())
	}
	pool, err := newWorkerPool(e.opts.Workers)
	if err != nil {
		e.state.Store(int32(StateIdle))
		return NewBatchError(ErrCodeConfig, "create worker pool failed", err)
	}
	e.pool = pool
	completions := make(chan completion[T], e.opts.Workers)

	var g errgroup.Group
	g.Go(func() error {
		return e.dispatch(ctx, completions)
	})
	g.Go(func() error {
		return e.consume(ctx, completions)
	})
	go func() {
		e.finish(ctx, g.Wait())
	}()
	return nil
}

func (e *SuspendingExecutor[T]) dispatch(ctx context.Context, completions chan<- completion[T]) error {
	defer func() {
		e.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
		e.inflight.Wait()
		close(completions)
	}()
	//running tasks are never interrupted, only dispatch observes cancellation
	taskCtx := context.WithoutCancel(ctx)
	for {
		if !e.awaitRelief(ctx) || e.stopped(ctx) {
			e.interrupted.Store(true)
			logger.Info(ctx, "dispatch stopped, remaining:%v", e.source.TotalRemaining())
			return nil
		}
		task, ok := e.source.Next()
		if !ok {
			return nil
		}
		e.inflight.Add(1)
		e.submitted.Add(1)
		err := e.pool.Submit(func() {
			defer e.inflight.Done()
			result, err := task.Run(taskCtx)
			completions <- completion[T]{task: task, result: result, err: err}
		})
		if err != nil {
			logger.Error(ctx, "submit task failed, source:%v, err:%v", task.Source, err)
			completions <- completion[T]{task: task, err: newTaskError(task.Source, err)}
			e.inflight.Done()
		}
	}
}

func (e *SuspendingExecutor[T]) consume(ctx context.Context, completions <-chan completion[T]) error {
	var fatal error
	for c := range completions {
		if c.err != nil {
			e.failed.Add(1)
			e.callback.OnFailure(ctx, c.err)
			continue
		}
		e.succeeded.Add(1)
		if err := e.callback.OnSuccess(ctx, c.result); err != nil && fatal == nil {
			logger.Error(ctx, "result callback failed, stopping dispatch, source:%v, err:%v", c.task.Source, err)
			fatal = err
			e.Stop()
		}
	}
	return fatal
}

//awaitRelief blocks while the pressure predicate is active, false if the run was stopped meanwhile
func (e *SuspendingExecutor[T]) awaitRelief(ctx context.Context) bool {
	if !e.opts.Pressure.ShouldSuspend() {
		return true
	}
	e.suspensions.Add(1)
	logger.Info(ctx, "resource pressure detected, dispatch suspended, remaining:%v", e.source.TotalRemaining())
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.PressureMinInterval
	b.MaxInterval = e.opts.PressureMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	timer := time.NewTimer(b.NextBackOff())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-e.stopCh:
			return false
		case <-timer.C:
		}
		if !e.opts.Pressure.ShouldSuspend() {
			logger.Info(ctx, "resource pressure cleared, dispatch resumed")
			return true
		}
		timer.Reset(b.NextBackOff())
	}
}

func (e *SuspendingExecutor[T]) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-e.stopCh:
		return true
	default:
		return false
	}
}

func (e *SuspendingExecutor[T]) finish(ctx context.Context, err error) {
	e.mu.Lock()
	e.err = err
	e.state.Store(int32(StateFinished))
	listeners := e.listeners
	e.listeners = nil
	e.mu.Unlock()

	e.pool.Release()
	for _, l := range listeners {
		l.OnFinished(ctx, err)
	}
	close(e.done)
}

//AddFinishedListener registers l, it is invoked right away if the executor already finished
func (e *SuspendingExecutor[T]) AddFinishedListener(l FinishedListener) {
	e.mu.Lock()
	if ExecutorState(e.state.Load()) != StateFinished {
		e.listeners = append(e.listeners, l)
		e.mu.Unlock()
		return
	}
	err := e.err
	e.mu.Unlock()
	l.OnFinished(context.Background(), err)
}

//Stop stops pulling new tasks, in-flight tasks run to completion
func (e *SuspendingExecutor[T]) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

//Wait blocks until FINISHED and returns the first fatal callback error
func (e *SuspendingExecutor[T]) Wait() error {
	if e.State() == StateIdle {
		return NewBatchError(ErrCodeConfig, "executor not started")
	}
	<-e.done
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

//Interrupted reports whether dispatch ended because of Stop or cancellation rather than an exhausted source
func (e *SuspendingExecutor[T]) Interrupted() bool {
	return e.interrupted.Load()
}

//Done is closed once the executor is FINISHED and its listeners have run
func (e *SuspendingExecutor[T]) Done() <-chan struct{} {
	return e.done
}

func (e *SuspendingExecutor[T]) State() ExecutorState {
	return ExecutorState(e.state.Load())
}

func (e *SuspendingExecutor[T]) Stats() ExecutorStats {
	return ExecutorStats{
		Submitted:   e.submitted.Load(),
		Succeeded:   e.succeeded.Load(),
		Failed:      e.failed.Load(),
		Suspensions: e.suspensions.Load(),
	}
}
