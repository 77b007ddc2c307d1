package twig

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"pgregory.net/rapid"
)

type recordingCallback struct {
	mu        sync.Mutex
	successes map[string]int
	failures  map[string]int
	calls     atomic.Int64
	onSuccess func(result *stringSet) error
}

func newRecordingCallback() *recordingCallback {
	return &recordingCallback{successes: map[string]int{}, failures: map[string]int{}}
}

func (c *recordingCallback) OnSuccess(ctx context.Context, result *stringSet) error {
	c.calls.Add(1)
	c.mu.Lock()
	for _, s := range result.Sorted() {
		c.successes[s]++
	}
	c.mu.Unlock()
	if c.onSuccess != nil {
		return c.onSuccess(result)
	}
	return nil
}

func (c *recordingCallback) OnFailure(ctx context.Context, err error) {
	c.calls.Add(1)
	te, ok := err.(*TaskError)
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.failures[te.Source]++
	} else {
		c.failures[err.Error()]++
	}
}

func TestSuspendingExecutor_ExactlyOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "inputs")
		workers := rapid.IntRange(1, 6).Draw(t, "workers")
		failing := rapid.SliceOfN(rapid.Bool(), n, n).Draw(t, "failing")

		inputs := inputNames(n)
		failSet := map[string]bool{}
		for i, f := range failing {
			if f {
				failSet[inputs[i]] = true
			}
		}
		factory := func(input string) TaskFunc[*stringSet] {
			return func(ctx context.Context) (*stringSet, error) {
				if failSet[input] {
					return nil, fmt.Errorf("bad record in %v", input)
				}
				return newStringSet(input), nil
			}
		}
		callback := newRecordingCallback()
		executor, err := NewSuspendingExecutor[*stringSet](NewFileTaskSource(inputs, factory), callback, ExecutorOptions{Workers: workers})
		if err != nil {
			t.Fatalf("new executor: %v", err)
		}
		var finished atomic.Int32
		var callsAtFinish int64
		executor.AddFinishedListener(FinishedFunc(func(ctx context.Context, err error) {
			finished.Add(1)
			callsAtFinish = callback.calls.Load()
		}))
		if err := executor.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
		if err := executor.Wait(); err != nil {
			t.Fatalf("wait: %v", err)
		}

		if finished.Load() != 1 {
			t.Fatalf("finished fired %d times", finished.Load())
		}
		if callsAtFinish != int64(n) {
			t.Fatalf("finished fired after %d of %d callbacks", callsAtFinish, n)
		}
		for _, in := range inputs {
			total := callback.successes[in] + callback.failures[in]
			if total != 1 {
				t.Fatalf("input %v reported %d times", in, total)
			}
			if failSet[in] != (callback.failures[in] == 1) {
				t.Fatalf("input %v reported with wrong outcome", in)
			}
		}
		stats := executor.Stats()
		if stats.Submitted != int64(n) || stats.Succeeded+stats.Failed != int64(n) {
			t.Fatalf("unexpected stats %+v for %d inputs", stats, n)
		}
		if executor.State() != StateFinished {
			t.Fatalf("state %v", executor.State())
		}
	})
}

func TestSuspendingExecutor_SuspendsUnderPressure(t *testing.T) {
	var pressure atomic.Bool
	pressure.Store(true)
	executor, err := NewSuspendingExecutor[*stringSet](NewFileTaskSource(inputNames(10), echoFactory), newRecordingCallback(), ExecutorOptions{
		Workers:             2,
		Pressure:            PressureFunc(pressure.Load),
		PressureMinInterval: 5 * time.Millisecond,
		PressureMaxInterval: 20 * time.Millisecond,
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, executor.Start(context.Background()))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), executor.Stats().Submitted)
	assert.Equal(t, StateRunning, executor.State())

	pressure.Store(false)
	assert.Equal(t, nil, executor.Wait())
	stats := executor.Stats()
	assert.Equal(t, int64(10), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Suspensions)
}

func TestSuspendingExecutor_StopWhileSuspended(t *testing.T) {
	source := NewFileTaskSource(inputNames(3), echoFactory)
	executor, err := NewSuspendingExecutor[*stringSet](source, newRecordingCallback(), ExecutorOptions{
		Workers:  1,
		Pressure: PressureFunc(func() bool { return true }),
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, executor.Start(context.Background()))
	executor.Stop()
	assert.Equal(t, nil, executor.Wait())
	assert.Equal(t, 3, source.TotalRemaining())
	assert.Equal(t, StateFinished, executor.State())
}

func TestSuspendingExecutor_StopLetsInflightFinish(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 10)
	factory := func(input string) TaskFunc[*stringSet] {
		return func(ctx context.Context) (*stringSet, error) {
			started <- struct{}{}
			<-release
			return newStringSet(input), nil
		}
	}
	source := NewFileTaskSource(inputNames(10), factory)
	callback := newRecordingCallback()
	executor, err := NewSuspendingExecutor[*stringSet](source, callback, ExecutorOptions{Workers: 1})
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, executor.Start(context.Background()))

	<-started
	executor.Stop()
	close(release)
	assert.Equal(t, nil, executor.Wait())

	stats := executor.Stats()
	assert.T(t, stats.Succeeded >= 1)
	assert.Equal(t, stats.Submitted, stats.Succeeded)
	assert.Equal(t, 10, int(stats.Submitted)+source.TotalRemaining())
}

func TestSuspendingExecutor_CancelContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := NewFileTaskSource(inputNames(5), echoFactory)
	executor, err := NewSuspendingExecutor[*stringSet](source, newRecordingCallback(), ExecutorOptions{Workers: 2})
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, executor.Start(ctx))
	assert.Equal(t, nil, executor.Wait())
	assert.Equal(t, 5, source.TotalRemaining())
}

func TestSuspendingExecutor_FatalCallbackStopsDispatch(t *testing.T) {
	fatal := fmt.Errorf("checkpoint lost")
	callback := newRecordingCallback()
	callback.onSuccess = func(result *stringSet) error {
		return fatal
	}
	source := NewFileTaskSource(inputNames(50), echoFactory)
	executor, err := NewSuspendingExecutor[*stringSet](source, callback, ExecutorOptions{Workers: 1})
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, executor.Start(context.Background()))
	assert.Equal(t, fatal, executor.Wait())

	stats := executor.Stats()
	assert.Equal(t, stats.Submitted, stats.Succeeded+stats.Failed)
	assert.Equal(t, stats.Submitted, callback.calls.Load())
}

func TestSuspendingExecutor_BoundedInflight(t *testing.T) {
	const workers = 3
	var live, peak atomic.Int64
	factory := func(input string) TaskFunc[*stringSet] {
		return func(ctx context.Context) (*stringSet, error) {
			n := live.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			return newStringSet(input), nil
		}
	}
	callback := newRecordingCallback()
	callback.onSuccess = func(result *stringSet) error {
		time.Sleep(200 * time.Microsecond)
		live.Add(-1)
		return nil
	}
	executor, err := NewSuspendingExecutor[*stringSet](NewFileTaskSource(inputNames(300), factory), callback, ExecutorOptions{Workers: workers})
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, executor.Start(context.Background()))
	assert.Equal(t, nil, executor.Wait())
	assert.Equal(t, int64(300), executor.Stats().Succeeded)
	// running tasks, buffered completions and the one being consumed
	assert.T(t, peak.Load() <= 2*workers+1, peak.Load())
}

func TestSuspendingExecutor_Lifecycle(t *testing.T) {
	_, err := NewSuspendingExecutor[*stringSet](NewFileTaskSource(inputNames(1), echoFactory), newRecordingCallback(), ExecutorOptions{Workers: 0})
	assert.T(t, IsCode(err, ErrCodeConfig))
	_, err = NewSuspendingExecutor[*stringSet](nil, newRecordingCallback(), ExecutorOptions{Workers: 1})
	assert.T(t, IsCode(err, ErrCodeConfig))

	executor, err := NewSuspendingExecutor[*stringSet](NewFileTaskSource(inputNames(2), echoFactory), newRecordingCallback(), ExecutorOptions{Workers: 1})
	assert.Equal(t, nil, err)
	assert.Equal(t, StateIdle, executor.State())
	assert.T(t, IsCode(executor.Wait(), ErrCodeConfig))

	assert.Equal(t, nil, executor.Start(context.Background()))
	assert.T(t, IsCode(executor.Start(context.Background()), ErrCodeConfig))
	assert.Equal(t, nil, executor.Wait())
	<-executor.Done()

	var late atomic.Int32
	executor.AddFinishedListener(FinishedFunc(func(ctx context.Context, err error) {
		late.Add(1)
	}))
	assert.Equal(t, int32(1), late.Load())
	assert.Equal(t, "FINISHED", executor.State().String())
}

func TestSuspendingExecutor_TasksOutliveCancellation(t *testing.T) {
	type key struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "run-7"))
	release := make(chan struct{})
	var taskErr atomic.Value
	var seen atomic.Value
	factory := func(input string) TaskFunc[*stringSet] {
		return func(taskCtx context.Context) (*stringSet, error) {
			<-release
			seen.Store(taskCtx.Value(key{}))
			if err := taskCtx.Err(); err != nil {
				taskErr.Store(err)
			}
			return newStringSet(input), nil
		}
	}
	executor, err := NewSuspendingExecutor[*stringSet](NewFileTaskSource(inputNames(5), factory), newRecordingCallback(), ExecutorOptions{Workers: 1})
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, executor.Start(ctx))
	cancel()
	close(release)
	assert.Equal(t, nil, executor.Wait())

	assert.T(t, executor.Interrupted())
	assert.T(t, taskErr.Load() == nil)
	stats := executor.Stats()
	assert.Equal(t, stats.Submitted, stats.Succeeded)
	if stats.Submitted > 0 {
		assert.Equal(t, "run-7", seen.Load())
	}
}
