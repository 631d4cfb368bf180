package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/job-agent/app/lease"
	"github.com/lysyi3m/job-agent/app/scrape"
)

type ScrapeRunner interface {
	Run(ctx context.Context) scrape.Result
}

var _ ScrapeRunner = (*scrape.Orchestrator)(nil)

type ScrapeJobsTask struct {
	Task
	runner ScrapeRunner
}

func NewScrapeJobsTask(runner ScrapeRunner, maxRetries int) *ScrapeJobsTask {
	task := NewTask(TaskTypeScrapeJobs, lease.ScrapeLeaseName)
	task.MaxRetries = maxRetries
	return &ScrapeJobsTask{
		Task:   task,
		runner: runner,
	}
}

func (t *ScrapeJobsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	res := t.runner.Run(ctx)

	if res.Skipped() {
		slog.Info("Task skipped", "type", "ScrapeJobs", "reason", "lease held")
		return nil
	}

	if err := res.Err(); err != nil {
		return fmt.Errorf("job scrape failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "ScrapeJobs",
		"fetched", res.Fetched,
		"stored", res.Stored,
		"duration", t.GetDuration())

	return nil
}
