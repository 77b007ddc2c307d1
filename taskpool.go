package twig

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
)

type taskPool struct {
	pool *ants.Pool
}

func newWorkerPool(size int) (*taskPool, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &taskPool{pool: pool}, nil
}

//Future get result in future
type Future[T any] interface {
	Get() (T, error)
}

type futureResult[T any] struct {
	val T
	err error
}

type futureImpl[T any] struct {
	ch <-chan futureResult[T]
}

func (f *futureImpl[T]) Get() (T, error) {
	r := <-f.ch
	return r.val, r.err
}

//Submit runs task on a free worker, blocking while every worker is busy
func (pool *taskPool) Submit(task func()) error {
	return pool.pool.Submit(task)
}

func submitFuture[T any](ctx context.Context, pool *taskPool, task func() (T, error)) Future[T] {
	result := make(chan futureResult[T], 1)
	err := pool.pool.Submit(func() {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(ctx, "panic in pooled task, err:%v", err)
				var zero T
				result <- futureResult[T]{val: zero, err: fmt.Errorf("panic:%v", err)}
			}
		}()
		val, err := task()
		result <- futureResult[T]{val: val, err: err}
	})
	if err != nil {
		var zero T
		result <- futureResult[T]{val: zero, err: err}
	}
	return &futureImpl[T]{
		ch: result,
	}
}

func (pool *taskPool) Release() {
	pool.pool.Release()
}

func (pool *taskPool) SetMaxSize(size int) {
	pool.pool.Tune(size)
}
