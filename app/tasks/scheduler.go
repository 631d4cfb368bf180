package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type PeriodicTask struct {
	// Spec is a cron expression or descriptor such as "@every 6h".
	Spec  string
	Build func() TaskInterface
}

type Options struct {
	WorkerCount  int
	QueueSize    int
	TaskTimeout  time.Duration
	StartupTasks []TaskInterface
	Periodic     []PeriodicTask
}

type Scheduler struct {
	workerCount  int
	taskTimeout  time.Duration
	startupTasks []TaskInterface
	cron         *cron.Cron
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
}

func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 300
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		workerCount:  opts.WorkerCount,
		taskTimeout:  opts.TaskTimeout,
		startupTasks: opts.StartupTasks,
		cron:         cron.New(cron.WithLogger(cronLogger{})),
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, opts.QueueSize),
	}

	for _, p := range opts.Periodic {
		build := p.Build
		_, err := s.cron.AddFunc(p.Spec, func() {
			task := build()
			if err := s.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue scheduled task", "type", string(task.GetType()), "error", err)
			}
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid schedule %q: %w", p.Spec, err)
		}
		slog.Debug("Periodic task registered", "schedule", p.Spec)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	for _, task := range s.startupTasks {
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue startup task", "type", string(task.GetType()), "error", err)
		}
	}

	s.cron.Start()
}

// Stop halts the schedule and waits for running tasks. Queued tasks that have
// not started are dropped.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
				case <-time.After(retryDelay):
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("Cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("Cron: "+msg, append(keysAndValues, "error", err)...)
}
