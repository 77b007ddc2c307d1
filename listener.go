package twig

import "context"

//RunListener run listener
type RunListener interface {
	//BeforeRun execute before the executor starts
	BeforeRun(ctx context.Context, execution *RunExecution) BatchError
	//AfterRun execute after the final flush, either normally or abnormally
	AfterRun(ctx context.Context, execution *RunExecution) BatchError
}

//CheckpointListener checkpoint listener
type CheckpointListener interface {
	//AfterCheckpoint execute after a snapshot was written durably and the accumulator was reset
	AfterCheckpoint(ctx context.Context, checkpoint *Checkpoint) BatchError
}

//FinishedListener executor listener, invoked exactly once after the last completion callback
type FinishedListener interface {
	OnFinished(ctx context.Context, err error)
}

//FinishedFunc adapts a function to FinishedListener
type FinishedFunc func(ctx context.Context, err error)

func (f FinishedFunc) OnFinished(ctx context.Context, err error) {
	f(ctx, err)
}
