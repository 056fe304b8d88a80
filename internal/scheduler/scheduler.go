// Package scheduler runs named periodic tasks cooperatively. Each task
// owns an in-flight guard: a slow run is never started twice
// concurrently, its next ticks are skipped instead.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// TaskFunc is one periodic task body. It must run to completion or
// return an error; the scheduler never cancels a running task.
type TaskFunc func(ctx context.Context) error

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc

	inFlight atomic.Bool

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// Scheduler owns a set of named periodic tasks with an explicit
// start/stop lifecycle.
type Scheduler struct {
	tasks   []*task
	log     logze.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started atomic.Bool
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{log: logze.With("module", "scheduler")}
}

// Add registers a named task. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, fn TaskFunc) {
	s.tasks = append(s.tasks, &task{name: name, interval: interval, fn: fn})
}

// Start launches one loop per task. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errm.New("scheduler already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.runLoop(ctx, t)
	}
	s.log.Info("scheduler started", "tasks", len(s.tasks))
	return nil
}

// Stop cancels all task loops and waits for running tasks to finish,
// bounded by the given context.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errm.New("scheduler stop timed out")
	}
}

// Status implements interfaces.StatusReporter.
func (s *Scheduler) Status() model.ComponentStatus {
	status := model.ComponentStatus{
		Name:    "scheduler",
		Healthy: s.started.Load(),
	}
	for _, t := range s.tasks {
		t.mu.Lock()
		if t.lastRun.After(status.LastRun) {
			status.LastRun = t.lastRun
		}
		if t.lastErr != nil {
			status.LastError = t.name + ": " + t.lastErr.Error()
		}
		t.mu.Unlock()
	}
	return status
}

// TaskStatuses reports per-task health for the ops surface.
func (s *Scheduler) TaskStatuses() []model.ComponentStatus {
	out := make([]model.ComponentStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		t.mu.Lock()
		status := model.ComponentStatus{
			Name:    "task:" + t.name,
			Healthy: t.lastErr == nil,
			LastRun: t.lastRun,
		}
		if t.lastErr != nil {
			status.LastError = t.lastErr.Error()
		}
		t.mu.Unlock()
		out = append(out, status)
	}
	return out
}

func (s *Scheduler) runLoop(ctx context.Context, t *task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

// runOnce executes one tick. Any error degrades to "skip this tick,
// log, continue"; the loop itself never crashes.
func (s *Scheduler) runOnce(ctx context.Context, t *task) {
	if !t.inFlight.CompareAndSwap(false, true) {
		s.log.Warn("previous run still in flight, skipping tick", "task", t.name)
		return
	}
	defer t.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked", "task", t.name, "panic", r)
			s.track(t, errm.New("panic: %v", r))
		}
	}()

	err := t.fn(ctx)
	s.track(t, err)
	if err != nil {
		class := model.ClassifyError(err)
		s.log.Error("task failed, skipping tick",
			"task", t.name, "class", class, "retryable", class.IsRetryable(), "error", err)
	}
}

func (s *Scheduler) track(t *task, err error) {
	t.mu.Lock()
	t.lastRun = time.Now().UTC()
	t.lastErr = err
	t.mu.Unlock()
}
