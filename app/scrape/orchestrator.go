package scrape

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/job-agent/app/database"
	"github.com/lysyi3m/job-agent/app/lease"
	"github.com/lysyi3m/job-agent/app/worknet"
)

type Stage string

const (
	StageLease     Stage = "lease"
	StageSchema    Stage = "schema"
	StageCompanies Stage = "companies"
	StageFetch     Stage = "fetch"
	StageUpsert    Stage = "upsert"
)

type StageResult struct {
	Stage   Stage
	Count   int
	Skipped bool
	Err     error
}

type Result struct {
	Stages   []StageResult
	Fetched  int
	Stored   int64
	Duration time.Duration
}

// Err returns the first stage error, if any.
func (r Result) Err() error {
	for _, s := range r.Stages {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Skipped reports whether the run did not happen because another run held
// the lease.
func (r Result) Skipped() bool {
	for _, s := range r.Stages {
		if s.Stage == StageLease && s.Skipped {
			return true
		}
	}
	return false
}

type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

type Fetcher interface {
	FetchMatching(ctx context.Context, names, aliases []string) ([]database.Posting, worknet.FetchStats)
}

var (
	_ SchemaEnsurer = (*database.Migrator)(nil)
	_ Fetcher       = (*worknet.Client)(nil)
)

type Options struct {
	Schema    SchemaEnsurer
	Companies database.CompanyRepository
	Fetcher   Fetcher
	Jobs      database.JobRepository
	// Locker is optional. Without it runs are not serialized.
	Locker   lease.Locker
	LeaseTTL time.Duration
}

// Orchestrator runs one scrape: lease, schema, companies, fetch, upsert.
type Orchestrator struct {
	opts Options
}

func New(opts Options) *Orchestrator {
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 15 * time.Minute
	}
	return &Orchestrator{opts: opts}
}

func (o *Orchestrator) Run(ctx context.Context) (res Result) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	holder := uuid.NewString()
	leaseStage, release := o.acquireLease(ctx, holder)
	if leaseStage != nil {
		res.Stages = append(res.Stages, *leaseStage)
		if leaseStage.Skipped {
			return res
		}
	}
	defer release()

	res.Stages = append(res.Stages, o.ensureSchema(ctx))

	names, aliases, companiesStage := o.loadCompanies(ctx)
	res.Stages = append(res.Stages, companiesStage)
	if companiesStage.Err != nil {
		return res
	}

	postings, stats := o.opts.Fetcher.FetchMatching(ctx, names, aliases)
	res.Fetched = len(postings)
	res.Stages = append(res.Stages, StageResult{Stage: StageFetch, Count: len(postings)})
	if len(postings) == 0 {
		slog.Info("No matching postings, nothing to persist",
			"companies", len(names),
			"pages_ok", stats.PagesOK,
			"pages_failed", stats.PagesFailed)
		return res
	}

	stored, err := o.opts.Jobs.UpsertNew(ctx, postings)
	res.Stages = append(res.Stages, StageResult{Stage: StageUpsert, Count: int(stored), Err: err})
	if err != nil {
		slog.Error("Failed to store postings", "postings", len(postings), "error", err)
		return res
	}
	res.Stored = stored

	slog.Info("Job scrape finished",
		"companies", len(names),
		"fetched", res.Fetched,
		"stored", res.Stored,
		"duration", time.Since(start))

	return res
}

// acquireLease returns a nil stage when no locker is configured. A lease
// backend failure is logged and the run continues unserialized.
func (o *Orchestrator) acquireLease(ctx context.Context, holder string) (*StageResult, func()) {
	noop := func() {}
	if o.opts.Locker == nil {
		return nil, noop
	}

	ok, err := o.opts.Locker.Acquire(ctx, lease.ScrapeLeaseName, holder, o.opts.LeaseTTL)
	if err != nil {
		slog.Warn("Failed to acquire scrape lease, continuing without it", "error", err)
		return &StageResult{Stage: StageLease}, noop
	}
	if !ok {
		slog.Info("Job scrape already running, skipping", "lease", lease.ScrapeLeaseName)
		return &StageResult{Stage: StageLease, Skipped: true}, noop
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := o.opts.Locker.Release(releaseCtx, lease.ScrapeLeaseName, holder); err != nil {
			slog.Warn("Failed to release scrape lease", "error", err)
		}
	}

	return &StageResult{Stage: StageLease, Count: 1}, release
}

func (o *Orchestrator) ensureSchema(ctx context.Context) StageResult {
	if o.opts.Schema == nil {
		return StageResult{Stage: StageSchema, Skipped: true}
	}

	if err := o.opts.Schema.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to ensure schema, continuing", "error", err)
		return StageResult{Stage: StageSchema, Err: err}
	}
	return StageResult{Stage: StageSchema}
}

func (o *Orchestrator) loadCompanies(ctx context.Context) ([]string, []string, StageResult) {
	companies, err := o.opts.Companies.ListCompanies(ctx)
	if err != nil {
		slog.Error("Failed to load interest companies", "error", err)
		return nil, nil, StageResult{Stage: StageCompanies, Err: err}
	}

	names := make([]string, 0, len(companies))
	aliases := make([]string, 0, len(companies))
	for _, c := range companies {
		names = append(names, c.Name)
		if strings.TrimSpace(c.Alias) != "" {
			aliases = append(aliases, c.Alias)
		}
	}

	slog.Debug("Interest companies loaded", "companies", len(names), "aliases", len(aliases))

	return names, aliases, StageResult{Stage: StageCompanies, Count: len(names)}
}
