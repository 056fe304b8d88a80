package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTasks(t *testing.T) {
	s := New()

	var runs atomic.Int64
	s.Add("counter", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStartOnce(t *testing.T) {
	s := New()
	s.Add("noop", time.Hour, func(context.Context) error { return nil })

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	s := New()

	var concurrent, maxConcurrent atomic.Int64
	s.Add("slow", 10*time.Millisecond, func(context.Context) error {
		now := concurrent.Add(1)
		defer concurrent.Add(-1)
		for {
			peak := maxConcurrent.Load()
			if now <= peak || maxConcurrent.CompareAndSwap(peak, now) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, int64(1), maxConcurrent.Load())
}

func TestSchedulerSurvivesErrorsAndPanics(t *testing.T) {
	s := New()

	var runs atomic.Int64
	s.Add("flaky", 10*time.Millisecond, func(context.Context) error {
		n := runs.Add(1)
		switch n {
		case 1:
			return errm.New("transient failure")
		case 2:
			panic("boom")
		}
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStatus(t *testing.T) {
	s := New()
	s.Add("healthy", 10*time.Millisecond, func(context.Context) error { return nil })
	s.Add("broken", 10*time.Millisecond, func(context.Context) error { return errm.New("always fails") })

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		statuses := s.TaskStatuses()
		if len(statuses) != 2 {
			return false
		}
		return !statuses[0].LastRun.IsZero() && statuses[1].LastError != ""
	}, 2*time.Second, 5*time.Millisecond)

	status := s.Status()
	assert.Equal(t, "scheduler", status.Name)
	assert.True(t, status.Healthy)
}

func TestSchedulerStopWaitsForRunningTask(t *testing.T) {
	s := New()

	var started, finished atomic.Bool
	s.Add("slow", 10*time.Millisecond, func(context.Context) error {
		started.Store(true)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, started.Load, 2*time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.True(t, finished.Load())
}
