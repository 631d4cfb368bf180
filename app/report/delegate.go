package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/lysyi3m/job-agent/app/database"
)

// Pipeline turns a user profile into a finished report.
type Pipeline interface {
	Generate(ctx context.Context, profile Profile) (string, error)
}

// Delegate drives a report record through PENDING, RUNNING and one of
// COMPLETED or FAILED around a single pipeline invocation. It never retries
// the pipeline.
type Delegate struct {
	reports  database.ReportRepository
	pipeline Pipeline
}

func NewDelegate(reports database.ReportRepository, pipeline Pipeline) *Delegate {
	return &Delegate{reports: reports, pipeline: pipeline}
}

// Submit stores a new PENDING report for the profile.
func (d *Delegate) Submit(ctx context.Context, profile Profile) (int64, error) {
	if profile == nil {
		profile = Profile{}
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return 0, fmt.Errorf("failed to encode profile: %w", err)
	}

	id, err := d.reports.CreateReport(ctx, data)
	if err != nil {
		return 0, err
	}

	slog.Debug("Report submitted", "report_id", id)
	return id, nil
}

// Run executes the pipeline for a PENDING report. RUNNING is persisted before
// the pipeline starts. A pipeline error or panic is stored with its stack in
// error_message and returned. Reports that already left PENDING are refused.
func (d *Delegate) Run(ctx context.Context, id int64) (string, error) {
	rec, err := d.reports.GetReport(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.Status != database.ReportStatusPending {
		return "", fmt.Errorf("report %d is %s: %w", id, rec.Status, database.ErrInvalidTransition)
	}

	if err := d.reports.MarkReportRunning(ctx, id); err != nil {
		return "", err
	}

	start := time.Now()
	content, err := d.generate(ctx, rec.Profile)
	if err != nil {
		// The failure must be recorded even if the caller's context is gone.
		if ferr := d.reports.FailReport(context.WithoutCancel(ctx), id, err.Error()); ferr != nil {
			slog.Error("Failed to record report failure", "report_id", id, "error", ferr)
		}
		slog.Error("Report generation failed", "report_id", id, "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("report %d failed: %w", id, err)
	}

	if err := d.reports.CompleteReport(context.WithoutCancel(ctx), id, content); err != nil {
		return "", err
	}

	slog.Info("Report completed", "report_id", id, "duration", time.Since(start), "length", len(content))
	return content, nil
}

// Generate submits and runs a report synchronously.
func (d *Delegate) Generate(ctx context.Context, profile Profile) (int64, string, error) {
	id, err := d.Submit(ctx, profile)
	if err != nil {
		return 0, "", err
	}

	content, err := d.Run(ctx, id)
	return id, content, err
}

// generate decodes the stored profile and invokes the pipeline, turning
// panics into errors. The returned error text carries the stack trace.
func (d *Delegate) generate(ctx context.Context, rawProfile []byte) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &pipelineError{err: fmt.Errorf("pipeline panic: %v", r), stack: debug.Stack()}
		}
	}()

	var profile Profile
	if err := json.Unmarshal(rawProfile, &profile); err != nil {
		return "", &pipelineError{err: fmt.Errorf("invalid stored profile: %w", err), stack: debug.Stack()}
	}

	content, err = d.pipeline.Generate(ctx, profile)
	if err != nil {
		return "", &pipelineError{err: err, stack: debug.Stack()}
	}
	return content, nil
}

type pipelineError struct {
	err   error
	stack []byte
}

func (e *pipelineError) Error() string {
	return fmt.Sprintf("%v\n\n%s", e.err, e.stack)
}

func (e *pipelineError) Unwrap() error {
	return e.err
}

// Summary returns the error without the stack trace, suitable for API
// responses.
func Summary(err error) string {
	var pe *pipelineError
	if errors.As(err, &pe) {
		return pe.err.Error()
	}
	return err.Error()
}
