package cfg

import "time"

// Cfg is the loaded configuration. It is built once in main and passed to
// constructors.
type Cfg struct {
	// Database configuration
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// HTTP configuration
	Port         string
	APIAccessKey string
	UserAgent    string

	// Background work
	WorkerCount      int
	QueueSize        int
	TaskTimeout      time.Duration
	ScrapeSchedule   string
	ScrapeMaxRetries int
	ScrapeLeaseTTL   time.Duration
	RedisURL         string

	// Job feed
	WorknetURL      string
	WorknetAPIKey   string
	WorknetPages    int
	WorknetPageSize int
	WorknetTimeout  time.Duration
	WorknetRPS      float64

	CompaniesFile string

	// Report generation
	LLMProvider   string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string
	LLMRPM        int

	NewsFeedURL       string
	NewsMaxItems      int
	NewsFetchArticles bool

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
