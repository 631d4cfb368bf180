package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid report status transition")
)

type JobRepository interface {
	ExistingJobIDs(ctx context.Context, candidates []string) (map[string]struct{}, error)
	UpsertNew(ctx context.Context, postings []Posting) (int64, error)
	Search(ctx context.Context, keywords []string, limit int) ([]Job, error)
	GetJobCount(ctx context.Context) (int, error)
}

type CompanyRepository interface {
	ListCompanies(ctx context.Context) ([]Company, error)
	UpsertCompany(ctx context.Context, name, alias string) error
	GetCompanyCount(ctx context.Context) (int, error)
}

type ReportRepository interface {
	CreateReport(ctx context.Context, profile []byte) (int64, error)
	GetReport(ctx context.Context, id int64) (*Report, error)
	MarkReportRunning(ctx context.Context, id int64) error
	CompleteReport(ctx context.Context, id int64, content string) error
	FailReport(ctx context.Context, id int64, message string) error
}

type LeaseRepository interface {
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, holder string) error
}
