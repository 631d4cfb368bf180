package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/job-agent/app/api"
	"github.com/lysyi3m/job-agent/app/cfg"
	"github.com/lysyi3m/job-agent/app/company"
	"github.com/lysyi3m/job-agent/app/database"
	"github.com/lysyi3m/job-agent/app/lease"
	"github.com/lysyi3m/job-agent/app/recommend"
	"github.com/lysyi3m/job-agent/app/report"
	"github.com/lysyi3m/job-agent/app/scrape"
	"github.com/lysyi3m/job-agent/app/tasks"
	"github.com/lysyi3m/job-agent/app/worknet"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Job Agent", "version", appCfg.Version, "db_driver", appCfg.DBDriver)

	ctx := context.Background()

	dialect, err := database.ParseDialect(appCfg.DBDriver)
	if err != nil {
		slog.Error("Invalid database driver", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(ctx, database.Options{
		Dialect:  dialect,
		Path:     appCfg.DBPath,
		Host:     appCfg.DBHost,
		Port:     appCfg.DBPort,
		User:     appCfg.DBUser,
		Password: appCfg.DBPassword,
		Name:     appCfg.DBName,
		SSLMode:  appCfg.DBSSLMode,
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// A failed migration is not fatal: each scrape run ensures the schema again.
	if version, dirty, err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
	} else {
		slog.Info("Database schema ready", "version", version, "dirty", dirty)
	}

	jobRepo := database.NewJobRepository(db)
	companyRepo := database.NewCompanyRepository(db)
	reportRepo := database.NewReportRepository(db)

	var locker lease.Locker = database.NewLeaseRepository(db)
	if appCfg.RedisURL != "" {
		redisLocker, err := lease.NewRedisLocker(ctx, appCfg.RedisURL)
		if err != nil {
			slog.Warn("Redis unavailable, using database lease", "error", err)
		} else {
			defer redisLocker.Close()
			locker = redisLocker
		}
	}

	worknetClient := worknet.NewClient(&http.Client{Timeout: appCfg.WorknetTimeout}, worknet.Options{
		URL:               appCfg.WorknetURL,
		APIKey:            appCfg.WorknetAPIKey,
		Pages:             appCfg.WorknetPages,
		PageSize:          appCfg.WorknetPageSize,
		UserAgent:         appCfg.UserAgent,
		RequestsPerSecond: appCfg.WorknetRPS,
	})
	if appCfg.WorknetAPIKey == "" {
		slog.Warn("WORKNET_API_KEY not set, job feed requests will likely be rejected")
	}

	orchestrator := scrape.New(scrape.Options{
		Schema:    database.NewMigrator(db),
		Companies: companyRepo,
		Fetcher:   worknetClient,
		Jobs:      jobRepo,
		Locker:    locker,
		LeaseTTL:  appCfg.ScrapeLeaseTTL,
	})

	delegate := report.NewDelegate(reportRepo, newReportPipeline(ctx, appCfg))

	newScrapeTask := func() tasks.TaskInterface {
		return tasks.NewScrapeJobsTask(orchestrator, appCfg.ScrapeMaxRetries)
	}

	schedulerOpts := tasks.Options{
		WorkerCount: appCfg.WorkerCount,
		QueueSize:   appCfg.QueueSize,
		TaskTimeout: appCfg.TaskTimeout,
	}
	if appCfg.ScrapeSchedule != "" {
		schedulerOpts.Periodic = append(schedulerOpts.Periodic, tasks.PeriodicTask{
			Spec:  appCfg.ScrapeSchedule,
			Build: newScrapeTask,
		})
	}

	entries, err := company.LoadCatalog(appCfg.CompaniesFile)
	if err != nil {
		slog.Error("Failed to load company catalog", "file", appCfg.CompaniesFile, "error", err)
	} else if len(entries) > 0 {
		slog.Info("Company catalog loaded", "file", appCfg.CompaniesFile, "companies", len(entries))
		schedulerOpts.StartupTasks = append(schedulerOpts.StartupTasks,
			tasks.NewSyncCompaniesTask(appCfg.CompaniesFile, entries, companyRepo))
	}

	scheduler, err := tasks.NewScheduler(schedulerOpts)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "scrape_schedule", appCfg.ScrapeSchedule)

	handler := api.NewHandler(api.Deps{
		Recommender: recommend.NewService(jobRepo),
		Reports:     delegate,
		ReportRepo:  reportRepo,
		Companies:   companyRepo,
		Jobs:        jobRepo,
		Scheduler:   scheduler,
		ScrapeTask:  newScrapeTask,
		Version:     appCfg.Version,
	})
	server := api.NewServer(handler, appCfg.APIAccessKey)

	// Synchronous report generation can take a while, so there is no write timeout.
	httpServer := &http.Server{
		Addr:              ":" + appCfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	slog.Info("Shutdown complete")
}

// newReportPipeline builds the report graph. Missing credentials do not stop
// the service; reports fail with the reason instead.
func newReportPipeline(ctx context.Context, appCfg *cfg.Cfg) report.Pipeline {
	chatModel, err := report.NewChatModel(ctx, report.ModelOptions{
		Provider:      appCfg.LLMProvider,
		OpenAIBaseURL: appCfg.OpenAIBaseURL,
		OpenAIAPIKey:  appCfg.OpenAIAPIKey,
		OpenAIModel:   appCfg.OpenAIModel,
		GeminiAPIKey:  appCfg.GeminiAPIKey,
		GeminiModel:   appCfg.GeminiModel,
	})
	if err != nil {
		slog.Warn("Report generation disabled", "provider", appCfg.LLMProvider, "error", err)
		return report.UnavailablePipeline{Err: err}
	}

	news := report.NewFeedNews(&http.Client{Timeout: 20 * time.Second}, report.FeedNewsOptions{
		FeedURL:       appCfg.NewsFeedURL,
		MaxItems:      appCfg.NewsMaxItems,
		FetchArticles: appCfg.NewsFetchArticles,
		UserAgent:     appCfg.UserAgent,
	})

	pipeline, err := report.NewGraphPipeline(ctx, chatModel, news, report.GraphOptions{
		Limiter: rate.NewLimiter(rate.Limit(float64(appCfg.LLMRPM)/60.0), 1),
	})
	if err != nil {
		slog.Error("Failed to build report pipeline", "error", err)
		return report.UnavailablePipeline{Err: err}
	}

	slog.Info("Report pipeline ready", "provider", appCfg.LLMProvider)
	return pipeline
}
