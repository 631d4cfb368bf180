package database

import (
	"context"
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ReportStatus
		expected bool
	}{
		{ReportStatusPending, ReportStatusRunning, true},
		{ReportStatusRunning, ReportStatusCompleted, true},
		{ReportStatusRunning, ReportStatusFailed, true},
		{ReportStatusPending, ReportStatusCompleted, false},
		{ReportStatusPending, ReportStatusFailed, false},
		{ReportStatusCompleted, ReportStatusRunning, false},
		{ReportStatusFailed, ReportStatusRunning, false},
		{ReportStatusRunning, ReportStatusPending, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.expected {
			t.Errorf("CanTransition(%s, %s): expected %v, got %v", tt.from, tt.to, tt.expected, got)
		}
	}
}

func TestReportLifecycleCompleted(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(newTestDB(t))

	id, err := repo.CreateReport(ctx, []byte(`{"목표 직무":"백엔드"}`))
	if err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}

	report, err := repo.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if report.Status != ReportStatusPending {
		t.Errorf("Expected PENDING, got %s", report.Status)
	}
	if report.Content != nil || report.ErrorMessage != nil {
		t.Error("Expected content and error message to be NULL")
	}
	if string(report.Profile) != `{"목표 직무":"백엔드"}` {
		t.Errorf("Unexpected profile %s", report.Profile)
	}

	if err := repo.MarkReportRunning(ctx, id); err != nil {
		t.Fatalf("MarkReportRunning failed: %v", err)
	}
	if err := repo.CompleteReport(ctx, id, "# 리포트"); err != nil {
		t.Fatalf("CompleteReport failed: %v", err)
	}

	report, err = repo.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if report.Status != ReportStatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", report.Status)
	}
	if report.Content == nil || *report.Content != "# 리포트" {
		t.Errorf("Unexpected content %v", report.Content)
	}
	if report.ErrorMessage != nil {
		t.Errorf("Expected no error message, got %q", *report.ErrorMessage)
	}
}

func TestReportLifecycleFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(newTestDB(t))

	id, err := repo.CreateReport(ctx, []byte(`{}`))
	if err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	if err := repo.MarkReportRunning(ctx, id); err != nil {
		t.Fatalf("MarkReportRunning failed: %v", err)
	}
	if err := repo.FailReport(ctx, id, "pipeline exploded"); err != nil {
		t.Fatalf("FailReport failed: %v", err)
	}

	report, err := repo.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if report.Status != ReportStatusFailed {
		t.Errorf("Expected FAILED, got %s", report.Status)
	}
	if report.ErrorMessage == nil || *report.ErrorMessage != "pipeline exploded" {
		t.Errorf("Unexpected error message %v", report.ErrorMessage)
	}
	if report.Content != nil {
		t.Errorf("Expected content to stay NULL, got %q", *report.Content)
	}
}

func TestReportInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(newTestDB(t))

	id, err := repo.CreateReport(ctx, []byte(`{}`))
	if err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}

	if err := repo.CompleteReport(ctx, id, "too early"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition completing a pending report, got %v", err)
	}

	if err := repo.MarkReportRunning(ctx, id); err != nil {
		t.Fatalf("MarkReportRunning failed: %v", err)
	}
	if err := repo.MarkReportRunning(ctx, id); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition starting twice, got %v", err)
	}

	if err := repo.CompleteReport(ctx, id, "done"); err != nil {
		t.Fatalf("CompleteReport failed: %v", err)
	}
	if err := repo.FailReport(ctx, id, "late failure"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition failing a completed report, got %v", err)
	}
}

func TestGetReportNotFound(t *testing.T) {
	repo := NewReportRepository(newTestDB(t))

	_, err := repo.GetReport(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := repo.MarkReportRunning(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown report, got %v", err)
	}
}
