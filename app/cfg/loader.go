package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" description:"Database driver (sqlite or postgres)"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/jobs.db" description:"SQLite database file"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"job_agent" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"Database password"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"job_agent" description:"Database name"`
	DBSSLMode  string `long:"db-sslmode" env:"DB_SSLMODE" default:"disable" description:"PostgreSQL sslmode"`

	// HTTP configuration
	Port         string `long:"port" env:"PORT" default:"8000" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for /api endpoints (optional)"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"Job Agent/1.0" description:"User agent string for HTTP requests"`

	// Background work
	WorkerCount      int           `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	QueueSize        int           `long:"queue-size" env:"QUEUE_SIZE" default:"300" description:"Background task queue size"`
	TaskTimeout      time.Duration `long:"task-timeout" env:"TASK_TIMEOUT" default:"10m" description:"Timeout for a single background task"`
	ScrapeSchedule   string        `long:"scrape-schedule" env:"SCRAPE_SCHEDULE" description:"Cron spec for periodic scrapes, e.g. @every 6h (empty disables)"`
	ScrapeMaxRetries int           `long:"scrape-max-retries" env:"SCRAPE_MAX_RETRIES" default:"0" description:"Retries for a failed scrape"`
	ScrapeLeaseTTL   time.Duration `long:"scrape-lease-ttl" env:"SCRAPE_LEASE_TTL" default:"15m" description:"How long a scrape run holds its lease"`
	RedisURL         string        `long:"redis-url" env:"REDIS_URL" description:"Redis URL for the scrape lease (optional, database lease otherwise)"`

	// Job feed
	WorknetURL      string        `long:"worknet-url" env:"WORKNET_URL" default:"https://www.work24.go.kr/cm/openApi/call/wk/callOpenApiSvcInfo210L21.do" description:"Work24 open API endpoint"`
	WorknetAPIKey   string        `long:"worknet-api-key" env:"WORKNET_API_KEY" description:"Work24 open API key"`
	WorknetPages    int           `long:"worknet-pages" env:"WORKNET_PAGES" default:"3" description:"Pages fetched per scrape"`
	WorknetPageSize int           `long:"worknet-page-size" env:"WORKNET_PAGE_SIZE" default:"100" description:"Postings per page"`
	WorknetTimeout  time.Duration `long:"worknet-timeout" env:"WORKNET_TIMEOUT" default:"30s" description:"Timeout for one page request"`
	WorknetRPS      float64       `long:"worknet-rps" env:"WORKNET_RPS" default:"2" description:"Page requests per second (0 for unlimited)"`

	CompaniesFile string `long:"companies-file" env:"COMPANIES_FILE" default:"./companies.yml" description:"YAML catalog of companies of interest"`

	// Report generation
	LLMProvider   string `long:"llm-provider" env:"LLM_PROVIDER" default:"openai" description:"Chat model provider (openai or gemini)"`
	OpenAIBaseURL string `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"OpenAI-compatible API base URL"`
	OpenAIAPIKey  string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIModel   string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI model name"`
	GeminiAPIKey  string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Google Gemini API key"`
	GeminiModel   string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.5-flash" description:"Gemini model name"`
	LLMRPM        int    `long:"llm-rpm" env:"LLM_RPM" default:"20" description:"Chat model requests per minute"`

	NewsFeedURL       string `long:"news-feed-url" env:"NEWS_FEED_URL" description:"News search RSS URL template with one %s for the query"`
	NewsMaxItems      int    `long:"news-max-items" env:"NEWS_MAX_ITEMS" default:"5" description:"News items per company"`
	NewsFetchArticles bool   `long:"news-fetch-articles" env:"NEWS_FETCH_ARTICLES" description:"Fetch article pages and extract their text"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Asia/Seoul" description:"Timezone for timestamps (e.g., UTC, Asia/Seoul)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns nil, nil
// when --help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:          strings.ToLower(raw.DBDriver),
		DBPath:            raw.DBPath,
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		DBSSLMode:         raw.DBSSLMode,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		WorkerCount:       raw.WorkerCount,
		QueueSize:         raw.QueueSize,
		TaskTimeout:       raw.TaskTimeout,
		ScrapeSchedule:    strings.TrimSpace(raw.ScrapeSchedule),
		ScrapeMaxRetries:  raw.ScrapeMaxRetries,
		ScrapeLeaseTTL:    raw.ScrapeLeaseTTL,
		RedisURL:          raw.RedisURL,
		WorknetURL:        raw.WorknetURL,
		WorknetAPIKey:     raw.WorknetAPIKey,
		WorknetPages:      raw.WorknetPages,
		WorknetPageSize:   raw.WorknetPageSize,
		WorknetTimeout:    raw.WorknetTimeout,
		WorknetRPS:        raw.WorknetRPS,
		CompaniesFile:     raw.CompaniesFile,
		LLMProvider:       strings.ToLower(raw.LLMProvider),
		OpenAIBaseURL:     raw.OpenAIBaseURL,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		OpenAIModel:       raw.OpenAIModel,
		GeminiAPIKey:      raw.GeminiAPIKey,
		GeminiModel:       raw.GeminiModel,
		LLMRPM:            raw.LLMRPM,
		NewsFeedURL:       raw.NewsFeedURL,
		NewsMaxItems:      raw.NewsMaxItems,
		NewsFetchArticles: raw.NewsFetchArticles,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

// Validate checks enumerations and counts. Secrets are not required here.
func (c *Cfg) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres", "postgresql", "pgx":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"WORKER_COUNT", c.WorkerCount},
		{"QUEUE_SIZE", c.QueueSize},
		{"WORKNET_PAGES", c.WorknetPages},
		{"WORKNET_PAGE_SIZE", c.WorknetPageSize},
		{"LLM_RPM", c.LLMRPM},
		{"NEWS_MAX_ITEMS", c.NewsMaxItems},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return fmt.Errorf("%s must be positive", f.name)
		}
	}

	if c.ScrapeMaxRetries < 0 {
		return fmt.Errorf("SCRAPE_MAX_RETRIES must be non-negative")
	}
	if c.WorknetRPS < 0 {
		return fmt.Errorf("WORKNET_RPS must be non-negative")
	}
	if c.TaskTimeout <= 0 || c.ScrapeLeaseTTL <= 0 || c.WorknetTimeout <= 0 {
		return fmt.Errorf("TASK_TIMEOUT, SCRAPE_LEASE_TTL and WORKNET_TIMEOUT must be positive")
	}
	if c.NewsFeedURL != "" && strings.Count(c.NewsFeedURL, "%s") != 1 {
		return fmt.Errorf("NEWS_FEED_URL must contain exactly one %%s")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
