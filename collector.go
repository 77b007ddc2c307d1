package twig

import (
	"context"
	"reflect"
	"sync"
	"time"
)

//Mergeable result type supporting associative, commutative merge and a size metric
type Mergeable[T any] interface {
	Merge(other T)
	Size() int
}

//Sink writes a snapshot durably under the given rotation index and returns its location
type Sink[T any] interface {
	Write(ctx context.Context, index int, snapshot T) (string, error)
}

//SinkFunc adapts a function to Sink
type SinkFunc[T any] func(ctx context.Context, index int, snapshot T) (string, error)

func (f SinkFunc[T]) Write(ctx context.Context, index int, snapshot T) (string, error) {
	return f(ctx, index, snapshot)
}

//isNil also catches interfaces holding a nil pointer, map, func or chan
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

//CheckpointingCollector merges task results into one accumulator and flushes it once it reaches the threshold
type CheckpointingCollector[T Mergeable[T]] struct {
	mu          sync.Mutex
	newAcc      func() T
	acc         T
	sink        Sink[T]
	threshold   int
	index       int
	flushedSize int
	checkpoints []*Checkpoint
	sinkErr     BatchError
	listeners   []CheckpointListener

	failMu     sync.Mutex
	failCount  int
	failures   []error
	sampleSize int
}

//NewCheckpointingCollector new instance, newAcc must return an empty accumulator on every call
func NewCheckpointingCollector[T Mergeable[T]](newAcc func() T, sink Sink[T], threshold int) (*CheckpointingCollector[T], BatchError) {
	if newAcc == nil {
		return nil, NewBatchError(ErrCodeConfig, "accumulator constructor must not be nil")
	}
	if isNil(sink) {
		return nil, NewBatchError(ErrCodeConfig, "sink must not be nil")
	}
	if threshold <= 0 {
		return nil, NewBatchError(ErrCodeConfig, "threshold must be positive, got:%v", threshold)
	}
	return &CheckpointingCollector[T]{
		newAcc:     newAcc,
		acc:        newAcc(),
		sink:       sink,
		threshold:  threshold,
		sampleSize: DefaultFailureSampleSize,
	}, nil
}

//AddCheckpointListener registers l, to be called after every durable flush
func (c *CheckpointingCollector[T]) AddCheckpointListener(l CheckpointListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

//OnSuccess merges result and flushes before returning if the threshold is reached
func (c *CheckpointingCollector[T]) OnSuccess(ctx context.Context, result T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acc.Merge(result)
	if c.sinkErr != nil {
		return c.sinkErr
	}
	if c.acc.Size() >= c.threshold {
		if err := c.flushLocked(ctx); err != nil {
			return err
		}
	}
	return nil
}

//OnFailure records the failed task, the accumulator is untouched
func (c *CheckpointingCollector[T]) OnFailure(ctx context.Context, err error) {
	logger.Warn(ctx, "task failed and is excluded from the result, err:%v", err)
	c.failMu.Lock()
	defer c.failMu.Unlock()
	c.failCount++
	if len(c.failures) < c.sampleSize {
		c.failures = append(c.failures, err)
	}
}

//Flush writes the pending accumulator, if any, and resets it
func (c *CheckpointingCollector[T]) Flush(ctx context.Context) BatchError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked(ctx)
}

func (c *CheckpointingCollector[T]) flushLocked(ctx context.Context) BatchError {
	size := c.acc.Size()
	if size == 0 {
		return nil
	}
	location, err := c.sink.Write(ctx, c.index, c.acc)
	if err != nil {
		be := NewBatchError(ErrCodeSink, "write checkpoint %v failed", c.index, err)
		logger.Error(ctx, "flush failed, index:%v, size:%v, err:%v", c.index, size, err)
		if c.sinkErr == nil {
			c.sinkErr = be
		}
		return be
	}
	checkpoint := &Checkpoint{
		Index:      c.index,
		Location:   location,
		Size:       size,
		CreateTime: time.Now(),
	}
	c.checkpoints = append(c.checkpoints, checkpoint)
	c.index++
	c.flushedSize += size
	c.acc = c.newAcc()
	logger.Info(ctx, "checkpoint written, index:%v, size:%v, location:%v", checkpoint.Index, size, location)
	for _, l := range c.listeners {
		if e := l.AfterCheckpoint(ctx, checkpoint); e != nil {
			logger.Warn(ctx, "checkpoint listener failed, index:%v, err:%v", checkpoint.Index, e)
		}
	}
	return nil
}

//Err first sink error seen, nil if every flush succeeded
func (c *CheckpointingCollector[T]) Err() BatchError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sinkErr
}

func (c *CheckpointingCollector[T]) Checkpoints() []*Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]*Checkpoint, len(c.checkpoints))
	copy(result, c.checkpoints)
	return result
}

func (c *CheckpointingCollector[T]) FlushedSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushedSize
}

//Pending size of the accumulator not flushed yet
func (c *CheckpointingCollector[T]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acc.Size()
}

func (c *CheckpointingCollector[T]) FailureCount() int {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	return c.failCount
}

//Failures a sample of the recorded task errors, bounded in length
func (c *CheckpointingCollector[T]) Failures() []error {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	result := make([]error, len(c.failures))
	copy(result, c.failures)
	return result
}
