package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/job-agent/app/database"
	"github.com/lysyi3m/job-agent/app/report"
	"github.com/lysyi3m/job-agent/app/tasks"
)

const (
	serviceName          = "AGENT API"
	scrapeStartedMessage = "Job scraping task has been started in the background."
)

func NewHandler(deps Deps) *Handler {
	return &Handler{
		recommender: deps.Recommender,
		reports:     deps.Reports,
		reportRepo:  deps.ReportRepo,
		companyRepo: deps.Companies,
		jobRepo:     deps.Jobs,
		scheduler:   deps.Scheduler,
		scrapeTask:  deps.ScrapeTask,
		version:     deps.Version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": serviceName,
		"version": h.version,
	})
}

func (h *Handler) RecommendJobs(c *gin.Context) {
	resp, err := h.recommender.Recommend(c.Request.Context(), c.Query("job_keywords"), c.Query("portfolio_keywords"))
	if err != nil {
		slog.Error("Database error", "operation", "recommend_jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	results := make([]jobResponse, 0, len(resp.Results))
	for _, job := range resp.Results {
		results = append(results, newJobResponse(job))
	}

	if resp.Message != "" {
		c.JSON(http.StatusOK, gin.H{
			"message": resp.Message,
			"results": results,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"results": results,
	})
}

func (h *Handler) GenerateReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	if req.UserProfileRaw == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user_profile_raw is required"})
		return
	}

	id, content, err := h.reports.Generate(c.Request.Context(), report.Profile(req.UserProfileRaw))
	if err != nil {
		slog.Error("Report generation failed", "report_id", id, "error", report.Summary(err))
		resp := gin.H{"success": false, "error": report.Summary(err)}
		if id != 0 {
			resp["report_id"] = id
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"report":    content,
		"report_id": id,
	})
}

func (h *Handler) SubmitReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserProfileRaw == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must contain a user_profile_raw object"})
		return
	}

	id, err := h.reports.Submit(c.Request.Context(), report.Profile(req.UserProfileRaw))
	if err != nil {
		slog.Error("Database error", "operation", "submit_report", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := h.scheduler.EnqueueTask(tasks.NewGenerateReportTask(h.reports, id)); err != nil {
		slog.Error("Error enqueueing report task", "report_id", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Failed to enqueue report task",
			"report_id": id,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"report_id": id,
		"status":    database.ReportStatusPending,
	})
}

func (h *Handler) GetReport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}

	rec, err := h.reportRepo.GetReport(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_report", "report_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, newReportResponse(rec))
}

func (h *Handler) TriggerJobScrape(c *gin.Context) {
	task := h.scrapeTask()
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing scrape task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue scrape task"})
		return
	}

	slog.Info("Job scrape triggered", "task_id", task.GetID())
	c.JSON(http.StatusAccepted, gin.H{"message": scrapeStartedMessage})
}

func (h *Handler) APIListCompanies(c *gin.Context) {
	companies, err := h.companyRepo.ListCompanies(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_companies", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]companyResponse, 0, len(companies))
	for _, company := range companies {
		out = append(out, newCompanyResponse(company))
	}

	c.JSON(http.StatusOK, gin.H{
		"companies": out,
		"total":     len(out),
	})
}

func (h *Handler) APIUpsertCompany(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Company name is required"})
		return
	}

	name := strings.TrimSpace(req.Name)
	alias := strings.TrimSpace(req.Alias)
	if err := h.companyRepo.UpsertCompany(c.Request.Context(), name, alias); err != nil {
		slog.Error("Database error", "operation", "upsert_company", "company", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"company": gin.H{"name": name, "alias": alias},
	})
}

func (h *Handler) APIGetStats(c *gin.Context) {
	stats := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if jobCount, err := h.jobRepo.GetJobCount(c.Request.Context()); err == nil {
		stats["jobs"] = jobCount
	} else {
		slog.Error("Database error", "operation", "count_jobs", "error", err)
	}

	if companyCount, err := h.companyRepo.GetCompanyCount(c.Request.Context()); err == nil {
		stats["companies"] = companyCount
	} else {
		slog.Error("Database error", "operation", "count_companies", "error", err)
	}

	c.JSON(http.StatusOK, stats)
}
