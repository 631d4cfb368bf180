package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lysyi3m/job-agent/app/report"
)

type ReportRunner interface {
	Run(ctx context.Context, id int64) (string, error)
}

var _ ReportRunner = (*report.Delegate)(nil)

// GenerateReportTask runs a previously submitted report. It is never retried:
// a report that failed stays FAILED.
type GenerateReportTask struct {
	Task
	ReportID int64
	runner   ReportRunner
}

func NewGenerateReportTask(runner ReportRunner, reportID int64) *GenerateReportTask {
	task := NewTask(TaskTypeGenerateReport, "report:"+strconv.FormatInt(reportID, 10))
	task.MaxRetries = 0
	return &GenerateReportTask{
		Task:     task,
		ReportID: reportID,
		runner:   runner,
	}
}

func (t *GenerateReportTask) Execute(ctx context.Context) error {
	content, err := t.runner.Run(ctx, t.ReportID)
	if err != nil {
		return fmt.Errorf("report %d failed: %s", t.ReportID, report.Summary(err))
	}

	slog.Info("Task completed",
		"type", "GenerateReport",
		"report_id", t.ReportID,
		"content_length", len(content),
		"duration", t.GetDuration())

	return nil
}
