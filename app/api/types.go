package api

import (
	"context"
	"time"

	"github.com/lysyi3m/job-agent/app/database"
	"github.com/lysyi3m/job-agent/app/recommend"
	"github.com/lysyi3m/job-agent/app/report"
	"github.com/lysyi3m/job-agent/app/tasks"
)

type Recommender interface {
	Recommend(ctx context.Context, jobKeywords, portfolioKeywords string) (recommend.Response, error)
}

type ReportService interface {
	Submit(ctx context.Context, profile report.Profile) (int64, error)
	Run(ctx context.Context, id int64) (string, error)
	Generate(ctx context.Context, profile report.Profile) (int64, string, error)
}

var (
	_ Recommender   = (*recommend.Service)(nil)
	_ ReportService = (*report.Delegate)(nil)
)

// Deps groups what the handlers need. ScrapeTask builds a fresh scrape task
// per trigger.
type Deps struct {
	Recommender Recommender
	Reports     ReportService
	ReportRepo  database.ReportRepository
	Companies   database.CompanyRepository
	Jobs        database.JobRepository
	Scheduler   tasks.TaskSchedulerInterface
	ScrapeTask  func() tasks.TaskInterface
	Version     string
}

type Handler struct {
	recommender Recommender
	reports     ReportService
	reportRepo  database.ReportRepository
	companyRepo database.CompanyRepository
	jobRepo     database.JobRepository
	scheduler   tasks.TaskSchedulerInterface
	scrapeTask  func() tasks.TaskInterface
	version     string
}

type jobResponse struct {
	ID             int64  `json:"id"`
	CompanyName    string `json:"company_name"`
	JobTitle       string `json:"job_title"`
	EmploymentType string `json:"employment_type"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	CompanyType    string `json:"company_type"`
	CompanyLogo    string `json:"company_logo"`
	ApplyLink      string `json:"apply_link"`
	JobID          string `json:"job_id"`
	CreatedAt      string `json:"created_at"`
}

func newJobResponse(job database.Job) jobResponse {
	return jobResponse{
		ID:             job.ID,
		CompanyName:    job.CompanyName,
		JobTitle:       job.JobTitle,
		EmploymentType: job.EmploymentType,
		StartDate:      job.StartDate,
		EndDate:        job.EndDate,
		CompanyType:    job.CompanyType,
		CompanyLogo:    job.CompanyLogo,
		ApplyLink:      job.ApplyLink,
		JobID:          job.JobID,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
	}
}

type reportResponse struct {
	ID           int64   `json:"id"`
	Status       string  `json:"status"`
	Content      *string `json:"content"`
	ErrorMessage *string `json:"error_message"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func newReportResponse(rec *database.Report) reportResponse {
	return reportResponse{
		ID:           rec.ID,
		Status:       string(rec.Status),
		Content:      rec.Content,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
	}
}

type companyResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Alias     *string `json:"alias"`
	CreatedAt string  `json:"created_at"`
}

func newCompanyResponse(c database.Company) companyResponse {
	resp := companyResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if c.Alias != "" {
		alias := c.Alias
		resp.Alias = &alias
	}
	return resp
}

type reportRequest struct {
	UserProfileRaw map[string]any `json:"user_profile_raw"`
}

type companyRequest struct {
	Name  string `json:"name" binding:"required"`
	Alias string `json:"alias"`
}
