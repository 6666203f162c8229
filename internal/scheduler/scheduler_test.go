package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/aggregator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicRuns(t *testing.T) {
	var runs atomic.Int32
	s := New(20*time.Millisecond, func(ctx context.Context) aggregator.Result {
		runs.Add(1)
		return aggregator.Result{SourceCount: 1}
	}, nil)

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestTriggerRunsImmediately(t *testing.T) {
	var runs atomic.Int32
	s := New(time.Hour, func(ctx context.Context) aggregator.Result {
		runs.Add(1)
		return aggregator.Result{}
	}, nil)

	s.Start(context.Background())
	defer s.Stop()

	s.Trigger()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	// pending triggers coalesce
	s.Trigger()
	s.Trigger()
	s.Trigger()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), int32(3))
}

func TestOnCycleObservesEveryResult(t *testing.T) {
	var observed atomic.Int32
	s := New(time.Hour, func(ctx context.Context) aggregator.Result {
		return aggregator.Result{SourceCount: 2, FailedSources: 2}
	}, func(result aggregator.Result) {
		if result.TotalFailure() {
			observed.Add(1)
		}
	})

	s.Start(context.Background())
	defer s.Stop()

	s.Trigger()
	require.Eventually(t, func() bool { return observed.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStopHaltsLoop(t *testing.T) {
	var runs atomic.Int32
	s := New(10*time.Millisecond, func(ctx context.Context) aggregator.Result {
		runs.Add(1)
		return aggregator.Result{}
	}, nil)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	s.Stop()

	frozen := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, runs.Load())
}
