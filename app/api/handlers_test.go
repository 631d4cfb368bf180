package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/job-agent/app/database"
	"github.com/lysyi3m/job-agent/app/recommend"
	"github.com/lysyi3m/job-agent/app/report"
	"github.com/lysyi3m/job-agent/app/scrape"
	"github.com/lysyi3m/job-agent/app/tasks"
)

type stubPipeline struct {
	content string
	err     error
}

func (p stubPipeline) Generate(ctx context.Context, profile report.Profile) (string, error) {
	return p.content, p.err
}

type stubScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (s *stubScheduler) Start() {}
func (s *stubScheduler) Stop()  {}

func (s *stubScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, task)
	return nil
}

type stubScrapeRunner struct{}

func (stubScrapeRunner) Run(ctx context.Context) scrape.Result {
	return scrape.Result{}
}

type failingSearcher struct{}

func (failingSearcher) Search(ctx context.Context, keywords []string, limit int) ([]database.Job, error) {
	return nil, errors.New("connection refused")
}

type testEnv struct {
	router    *gin.Engine
	db        *database.DB
	scheduler *stubScheduler
}

func newTestEnv(t *testing.T, pipeline report.Pipeline, apiKey string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(context.Background(), database.Options{
		Dialect: database.DialectSQLite,
		Path:    filepath.Join(t.TempDir(), "api.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	jobs := database.NewJobRepository(db)
	reports := database.NewReportRepository(db)
	scheduler := &stubScheduler{}

	handler := NewHandler(Deps{
		Recommender: recommend.NewService(jobs),
		Reports:     report.NewDelegate(reports, pipeline),
		ReportRepo:  reports,
		Companies:   database.NewCompanyRepository(db),
		Jobs:        jobs,
		Scheduler:   scheduler,
		ScrapeTask: func() tasks.TaskInterface {
			return tasks.NewScrapeJobsTask(stubScrapeRunner{}, 0)
		},
		Version: "test",
	})

	return &testEnv{router: NewServer(handler, apiKey), db: db, scheduler: scheduler}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func TestGetHealth(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")

	w, body := env.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["ok"] != true || body["service"] != "AGENT API" || body["version"] != "test" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestRootEndpoint(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")

	w, body := env.do(t, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if _, ok := body["endpoints"]; !ok {
		t.Error("expected endpoints listing")
	}
}

func TestRecommendJobs(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")

	_, err := database.NewJobRepository(env.db).UpsertNew(context.Background(), []database.Posting{
		{CompanyName: "(주)회사A", JobTitle: "백엔드 개발자", JobID: "J1"},
		{CompanyName: "회사B", JobTitle: "디자이너", JobID: "J2"},
		{CompanyName: "회사C", JobTitle: "Django 엔지니어", JobID: "J3"},
	})
	if err != nil {
		t.Fatal(err)
	}

	w, body := env.do(t, http.MethodGet, "/jobs/recommend?job_keywords=%EB%B0%B1%EC%97%94%EB%93%9C&portfolio_keywords=Django", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
	results := body["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	first := results[0].(map[string]any)
	if _, ok := first["job_id"]; !ok {
		t.Errorf("result missing job_id: %v", first)
	}
}

func TestRecommendJobsEmptyKeywords(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")

	w, body := env.do(t, http.MethodGet, "/jobs/recommend?job_keywords=%20,%20&portfolio_keywords=", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["message"] != recommend.EmptyKeywordsMessage {
		t.Errorf("message = %v", body["message"])
	}
	if results, ok := body["results"].([]any); !ok || len(results) != 0 {
		t.Errorf("results = %v, want empty list", body["results"])
	}
	if _, ok := body["count"]; ok {
		t.Error("count should be absent for the empty-keyword response")
	}
}

func TestRecommendJobsStorageFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(Deps{Recommender: recommend.NewService(failingSearcher{})})
	router := NewServer(handler, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/recommend?job_keywords=go", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("internal error leaked to the client")
	}
}

func TestGenerateReport(t *testing.T) {
	env := newTestEnv(t, stubPipeline{content: "# 보고서"}, "")

	w, body := env.do(t, http.MethodPost, "/report/generate", `{"user_profile_raw":{"목표 직무":"백엔드"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["success"] != true || body["report"] != "# 보고서" {
		t.Fatalf("unexpected body: %v", body)
	}

	id := int64(body["report_id"].(float64))
	rec, err := database.NewReportRepository(env.db).GetReport(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != database.ReportStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", rec.Status)
	}
}

func TestGenerateReportFailure(t *testing.T) {
	env := newTestEnv(t, stubPipeline{err: errors.New("model unavailable")}, "")

	w, body := env.do(t, http.MethodPost, "/report/generate", `{"user_profile_raw":{}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["success"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "model unavailable") || strings.Contains(msg, "goroutine") {
		t.Errorf("error = %q", msg)
	}

	id := int64(body["report_id"].(float64))
	rec, err := database.NewReportRepository(env.db).GetReport(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != database.ReportStatusFailed {
		t.Errorf("status = %s, want FAILED", rec.Status)
	}
}

func TestGenerateReportBadBody(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")

	for _, body := range []string{`not json`, `{}`, `{"user_profile_raw":"text"}`} {
		w, out := env.do(t, http.MethodPost, "/report/generate", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
		if out["success"] != false {
			t.Errorf("body %q: success = %v", body, out["success"])
		}
	}
}

func TestSubmitAndGetReport(t *testing.T) {
	env := newTestEnv(t, stubPipeline{content: "ok"}, "")

	w, body := env.do(t, http.MethodPost, "/reports", `{"user_profile_raw":{"희망 기업":"회사A"}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if body["status"] != "PENDING" {
		t.Errorf("status = %v", body["status"])
	}
	if len(env.scheduler.enqueued) != 1 || env.scheduler.enqueued[0].GetType() != tasks.TaskTypeGenerateReport {
		t.Fatalf("expected one report task, got %v", env.scheduler.enqueued)
	}

	id := int64(body["report_id"].(float64))
	if err := env.scheduler.enqueued[0].Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	w, body = env.do(t, http.MethodGet, "/reports/"+strconv.FormatInt(id, 10), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["status"] != "COMPLETED" || body["content"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestGetReportNotFound(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")

	if w, _ := env.do(t, http.MethodGet, "/reports/999", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/reports/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTriggerJobScrape(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")

	w, body := env.do(t, http.MethodPost, "/trigger-job-scrape", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if body["message"] != scrapeStartedMessage {
		t.Errorf("message = %v", body["message"])
	}
	if len(env.scheduler.enqueued) != 1 {
		t.Errorf("enqueued = %d, want 1", len(env.scheduler.enqueued))
	}
}

func TestTriggerJobScrapeQueueFull(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")
	env.scheduler.err = tasks.ErrQueueFull

	if w, _ := env.do(t, http.MethodPost, "/trigger-job-scrape", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestCompaniesAPI(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "secret")

	if w, _ := env.do(t, http.MethodGet, "/api/companies", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/api/companies", "", "X-API-Key", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong key = %d, want 401", w.Code)
	}

	w, _ := env.do(t, http.MethodPost, "/api/companies", `{"name":"(주)회사A","alias":"A사"}`, "X-API-Key", "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("upsert status = %d", w.Code)
	}
	if w, _ := env.do(t, http.MethodPost, "/api/companies", `{"alias":"x"}`, "X-API-Key", "secret"); w.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", w.Code)
	}

	w, body := env.do(t, http.MethodGet, "/api/companies", "", "Authorization", "Bearer secret")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if body["total"] != float64(1) {
		t.Errorf("total = %v, want 1", body["total"])
	}

	w, body = env.do(t, http.MethodGet, "/api/stats", "", "X-API-Key", "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	if body["companies"] != float64(1) || body["jobs"] != float64(0) {
		t.Errorf("unexpected stats: %v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, stubPipeline{}, "")

	w, _ := env.do(t, http.MethodOptions, "/report/generate", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
