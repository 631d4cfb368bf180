package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingTask struct {
	Task
	mu    sync.Mutex
	runs  int
	fail  int
	done  chan struct{}
	block chan struct{}
}

func newCountingTask(maxRetries, fail int) *countingTask {
	task := NewTask(TaskTypeScrapeJobs, "test")
	task.MaxRetries = maxRetries
	return &countingTask{Task: task, fail: fail, done: make(chan struct{}, 16)}
}

func (t *countingTask) Execute(ctx context.Context) error {
	if t.block != nil {
		select {
		case <-t.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.mu.Lock()
	t.runs++
	runs := t.runs
	t.mu.Unlock()
	t.done <- struct{}{}
	if runs <= t.fail {
		return errors.New("boom")
	}
	return nil
}

func (t *countingTask) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func waitRuns(t *testing.T, task *countingTask, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-task.done:
		case <-deadline:
			t.Fatalf("expected %d runs, got %d", n, task.Runs())
		}
	}
}

func TestNewSchedulerDefaults(t *testing.T) {
	s, err := NewScheduler(Options{})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if s.workerCount != 1 {
		t.Errorf("workerCount = %d, want 1", s.workerCount)
	}
	if cap(s.taskQueue) != 300 {
		t.Errorf("queue size = %d, want 300", cap(s.taskQueue))
	}
	if s.taskTimeout != 5*time.Minute {
		t.Errorf("taskTimeout = %v, want 5m", s.taskTimeout)
	}
}

func TestNewSchedulerInvalidSchedule(t *testing.T) {
	_, err := NewScheduler(Options{
		Periodic: []PeriodicTask{{Spec: "not a schedule", Build: func() TaskInterface { return newCountingTask(0, 0) }}},
	})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestSchedulerRunsEnqueuedTask(t *testing.T) {
	s, err := NewScheduler(Options{WorkerCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	task := newCountingTask(0, 0)
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("EnqueueTask() error = %v", err)
	}
	waitRuns(t, task, 1, 2*time.Second)
	if task.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
}

func TestSchedulerRunsStartupTasks(t *testing.T) {
	task := newCountingTask(0, 0)
	s, err := NewScheduler(Options{StartupTasks: []TaskInterface{task}})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	waitRuns(t, task, 1, 2*time.Second)
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	s, err := NewScheduler(Options{})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	task := newCountingTask(1, 1)
	if err := s.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}
	// First retry is delayed by one second.
	waitRuns(t, task, 2, 4*time.Second)
	if task.GetRetryCount() != 1 {
		t.Errorf("retry count = %d, want 1", task.GetRetryCount())
	}
}

func TestSchedulerDoesNotRetryWithoutBudget(t *testing.T) {
	s, err := NewScheduler(Options{})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	task := newCountingTask(0, 5)
	if err := s.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}
	waitRuns(t, task, 1, 2*time.Second)
	time.Sleep(1500 * time.Millisecond)
	if runs := task.Runs(); runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	s, err := NewScheduler(Options{QueueSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	// Workers are not started, so the queue only drains on Stop.
	if err := s.EnqueueTask(newCountingTask(0, 0)); err != nil {
		t.Fatalf("first EnqueueTask() error = %v", err)
	}
	if err := s.EnqueueTask(newCountingTask(0, 0)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second EnqueueTask() error = %v, want ErrQueueFull", err)
	}
}

func TestEnqueueTaskAfterStop(t *testing.T) {
	s, err := NewScheduler(Options{})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Stop()

	if err := s.EnqueueTask(newCountingTask(0, 0)); !errors.Is(err, context.Canceled) {
		t.Fatalf("EnqueueTask() error = %v, want context.Canceled", err)
	}
}

func TestStopCancelsRunningTask(t *testing.T) {
	s, err := NewScheduler(Options{})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()

	task := newCountingTask(0, 0)
	task.block = make(chan struct{})
	if err := s.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	stopped := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestSchedulerPeriodicTask(t *testing.T) {
	var built atomic.Int32
	task := newCountingTask(0, 0)
	s, err := NewScheduler(Options{
		Periodic: []PeriodicTask{{
			Spec: "@every 1s",
			Build: func() TaskInterface {
				built.Add(1)
				return task
			},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	waitRuns(t, task, 1, 3*time.Second)
	if built.Load() < 1 {
		t.Error("expected periodic builder to be called")
	}
}
