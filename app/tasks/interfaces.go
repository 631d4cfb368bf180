package tasks

import "errors"

var ErrQueueFull = errors.New("task queue is full")

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the HTTP handlers to hand work to the
// background worker pool.
// Example usage:
//
//	scheduler, err := NewScheduler(Options{WorkerCount: 2})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewScrapeJobsTask(orchestrator, 0))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
