package twig

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bmizerany/assert"
	"pgregory.net/rapid"
)

type checkpointCounter struct {
	mu      sync.Mutex
	indexes []int
}

func (c *checkpointCounter) AfterCheckpoint(ctx context.Context, checkpoint *Checkpoint) BatchError {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes = append(c.indexes, checkpoint.Index)
	return nil
}

func TestCheckpointingCollector_ThresholdBoundary(t *testing.T) {
	ctx := context.Background()
	sink := newMemorySink()
	collector, err := NewCheckpointingCollector(func() *stringSet { return newStringSet() }, Sink[*stringSet](sink), 3)
	assert.Equal(t, nil, err)
	listener := &checkpointCounter{}
	collector.AddCheckpointListener(listener)

	assert.Equal(t, nil, collector.OnSuccess(ctx, newStringSet("a")))
	assert.Equal(t, nil, collector.OnSuccess(ctx, newStringSet("b")))
	assert.Equal(t, 0, len(sink.sizes()))
	assert.Equal(t, 2, collector.Pending())

	// lands exactly on the threshold
	assert.Equal(t, nil, collector.OnSuccess(ctx, newStringSet("c")))
	assert.Equal(t, []int{3}, sink.sizes())
	assert.Equal(t, 0, collector.Pending())

	assert.Equal(t, nil, collector.OnSuccess(ctx, newStringSet("d")))
	assert.Equal(t, []int{3}, sink.sizes())
	assert.Equal(t, 1, collector.Pending())

	// overshoots the threshold in one merge
	assert.Equal(t, nil, collector.OnSuccess(ctx, newStringSet("e", "f", "g")))
	assert.Equal(t, []int{3, 4}, sink.sizes())

	assert.Equal(t, nil, collector.Flush(ctx))
	assert.Equal(t, []int{3, 4}, sink.sizes())

	assert.Equal(t, 7, collector.FlushedSize())
	assert.Equal(t, []int{0, 1}, listener.indexes)
	checkpoints := collector.Checkpoints()
	assert.Equal(t, 2, len(checkpoints))
	assert.Equal(t, "mem://1", checkpoints[1].Location)
	assert.Equal(t, 4, checkpoints[1].Size)
}

func TestCheckpointingCollector_NoLossAcrossFlush(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 200).Draw(t, "results")
		threshold := rapid.IntRange(1, 50).Draw(t, "threshold")
		producers := rapid.IntRange(1, 8).Draw(t, "producers")

		ctx := context.Background()
		sink := newMemorySink()
		collector, err := NewCheckpointingCollector(func() *stringSet { return newStringSet() }, Sink[*stringSet](sink), threshold)
		if err != nil {
			t.Fatalf("new collector: %v", err)
		}
		items := inputNames(n)
		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := p; i < n; i += producers {
					_ = collector.OnSuccess(ctx, newStringSet(items[i]))
				}
			}(p)
		}
		wg.Wait()
		if err := collector.Flush(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}

		if got := sink.union(); len(got) != n {
			t.Fatalf("flushed %d distinct results, want %d", len(got), n)
		}
		total := 0
		for i, size := range sink.sizes() {
			total += size
			last := i == len(sink.sizes())-1
			if !last && size < threshold {
				t.Fatalf("checkpoint %d flushed below threshold: %d < %d", i, size, threshold)
			}
		}
		if total != n || collector.FlushedSize() != n {
			t.Fatalf("flushed size %d, collector reports %d, want %d", total, collector.FlushedSize(), n)
		}
	})
}

func TestCheckpointingCollector_SinkError(t *testing.T) {
	ctx := context.Background()
	sink := newMemorySink()
	sink.setFailing(true)
	collector, err := NewCheckpointingCollector(func() *stringSet { return newStringSet() }, Sink[*stringSet](sink), 2)
	assert.Equal(t, nil, err)

	assert.Equal(t, nil, collector.OnSuccess(ctx, newStringSet("a")))
	err2 := collector.OnSuccess(ctx, newStringSet("b"))
	assert.T(t, IsCode(err2, ErrCodeSink))
	assert.T(t, IsCode(collector.Err(), ErrCodeSink))
	// the failed snapshot is kept
	assert.Equal(t, 2, collector.Pending())

	assert.NotEqual(t, nil, collector.OnSuccess(ctx, newStringSet("c")))
	assert.Equal(t, 3, collector.Pending())

	sink.setFailing(false)
	assert.Equal(t, nil, collector.Flush(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, sink.union())
	assert.Equal(t, 0, collector.Checkpoints()[0].Index)
	assert.T(t, IsCode(collector.Err(), ErrCodeSink))
}

func TestCheckpointingCollector_Failures(t *testing.T) {
	ctx := context.Background()
	collector, err := NewCheckpointingCollector(func() *stringSet { return newStringSet() }, Sink[*stringSet](newMemorySink()), 10)
	assert.Equal(t, nil, err)
	for i := 0; i < DefaultFailureSampleSize+5; i++ {
		collector.OnFailure(ctx, newTaskError(fmt.Sprintf("f%d", i), fmt.Errorf("bad")))
	}
	assert.Equal(t, DefaultFailureSampleSize+5, collector.FailureCount())
	assert.Equal(t, DefaultFailureSampleSize, len(collector.Failures()))
	assert.Equal(t, 0, collector.Pending())
}

func TestCheckpointingCollector_FlushEmpty(t *testing.T) {
	sink := newMemorySink()
	collector, err := NewCheckpointingCollector(func() *stringSet { return newStringSet() }, Sink[*stringSet](sink), 10)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, collector.Flush(context.Background()))
	assert.Equal(t, 0, len(sink.sizes()))
	assert.Equal(t, 0, len(collector.Checkpoints()))
}

func TestNewCheckpointingCollector_Config(t *testing.T) {
	_, err := NewCheckpointingCollector(func() *stringSet { return newStringSet() }, nil, 10)
	assert.T(t, IsCode(err, ErrCodeConfig))
	_, err = NewCheckpointingCollector(func() *stringSet { return newStringSet() }, Sink[*stringSet](newMemorySink()), 0)
	assert.T(t, IsCode(err, ErrCodeConfig))
	_, err = NewCheckpointingCollector[*stringSet](nil, newMemorySink(), 1)
	assert.T(t, IsCode(err, ErrCodeConfig))
	var typedNil *memorySink
	_, err = NewCheckpointingCollector(func() *stringSet { return newStringSet() }, Sink[*stringSet](typedNil), 1)
	assert.T(t, IsCode(err, ErrCodeConfig))
	_, err = NewCheckpointingCollector(func() *stringSet { return newStringSet() }, Sink[*stringSet](SinkFunc[*stringSet](nil)), 1)
	assert.T(t, IsCode(err, ErrCodeConfig))
}
