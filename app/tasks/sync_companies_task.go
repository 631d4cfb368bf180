package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/job-agent/app/company"
	"github.com/lysyi3m/job-agent/app/database"
)

// SyncCompaniesTask writes the company catalog file into the companies table.
// Rows not present in the file are left alone.
type SyncCompaniesTask struct {
	Task
	Entries     []company.CatalogEntry
	companyRepo database.CompanyRepository
}

func NewSyncCompaniesTask(source string, entries []company.CatalogEntry, companyRepo database.CompanyRepository) *SyncCompaniesTask {
	return &SyncCompaniesTask{
		Task:        NewTask(TaskTypeSyncCompanies, source),
		Entries:     entries,
		companyRepo: companyRepo,
	}
}

func (t *SyncCompaniesTask) Execute(ctx context.Context) error {
	for _, entry := range t.Entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.companyRepo.UpsertCompany(ctx, entry.Name, entry.Alias); err != nil {
			slog.Error("Task failed", "type", "SyncCompanies", "company", entry.Name, "error", err)
			return fmt.Errorf("failed to sync company %q: %w", entry.Name, err)
		}
	}

	slog.Info("Task completed",
		"type", "SyncCompanies",
		"source", t.GetSubject(),
		"companies", len(t.Entries),
		"duration", t.GetDuration())

	return nil
}
