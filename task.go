package twig

import (
	"context"
	"fmt"
	"runtime/debug"
)

//TaskFunc the work bound to one input, it yields one result or fails
type TaskFunc[T any] func(ctx context.Context) (T, error)

//TaskFactory builds the task that processes a single input
type TaskFactory[T any] func(input string) TaskFunc[T]

//Task one schedulable unit of work
type Task[T any] struct {
	Source string
	Seq    int
	fn     TaskFunc[T]
}

//NewTask new instance
func NewTask[T any](source string, seq int, fn TaskFunc[T]) Task[T] {
	return Task[T]{Source: source, Seq: seq, fn: fn}
}

//Run executes the task. A panic or error is reported as *TaskError naming the source
func (t Task[T]) Run(ctx context.Context) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "panic in task execution, source:%v, err:%v, stack:%v", t.Source, r, string(debug.Stack()))
			var zero T
			result = zero
			err = newTaskError(t.Source, fmt.Errorf("panic:%v", r))
		}
	}()
	if t.fn == nil {
		return result, newTaskError(t.Source, fmt.Errorf("task has no function"))
	}
	result, err = t.fn(ctx)
	if err != nil {
		if te, ok := err.(*TaskError); ok {
			return result, te
		}
		return result, newTaskError(t.Source, err)
	}
	return result, nil
}
