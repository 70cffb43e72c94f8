package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Social     SocialConfig     `yaml:"social" mapstructure:"social"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts" mapstructure:"artifacts"`
	Jobs       JobsConfig       `yaml:"jobs" mapstructure:"jobs"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-status database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// NotionConfig holds the project tracker credentials and property names.
type NotionConfig struct {
	Token            string  `yaml:"token" mapstructure:"token"`
	ProjectDB        string  `yaml:"project_db" mapstructure:"project_db"`
	ApprovedProperty string  `yaml:"approved_property" mapstructure:"approved_property"`
	SweepStatus      string  `yaml:"sweep_status" mapstructure:"sweep_status"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// DiscoveryConfig configures competitor discovery.
type DiscoveryConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"`
	CompetitorCount int    `yaml:"competitor_count" mapstructure:"competitor_count"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// TavilyConfig holds Tavily search settings.
type TavilyConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	SearchDepth string `yaml:"search_depth" mapstructure:"search_depth"`
	MaxResults  int    `yaml:"max_results" mapstructure:"max_results"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (scrape fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ApifyConfig holds the social actor-runner settings.
type ApifyConfig struct {
	Token       string            `yaml:"token" mapstructure:"token"`
	BaseURL     string            `yaml:"base_url" mapstructure:"base_url"`
	WaitSecs    int               `yaml:"wait_secs" mapstructure:"wait_secs"`
	TimeoutSecs int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Actors      map[string]string `yaml:"actors" mapstructure:"actors"`
}

// EnrichConfig configures search and page-scrape enrichment.
type EnrichConfig struct {
	SearchProvider    string `yaml:"search_provider" mapstructure:"search_provider"`
	Concurrency       int    `yaml:"concurrency" mapstructure:"concurrency"`
	SearchTimeoutSecs int    `yaml:"search_timeout_secs" mapstructure:"search_timeout_secs"`
	ScrapeTimeoutSecs int    `yaml:"scrape_timeout_secs" mapstructure:"scrape_timeout_secs"`
	UserAgent         string `yaml:"user_agent" mapstructure:"user_agent"`
}

// SocialConfig configures link extraction and social scraping.
type SocialConfig struct {
	LinkFetchTimeoutSecs int  `yaml:"link_fetch_timeout_secs" mapstructure:"link_fetch_timeout_secs"`
	MaxItems             int  `yaml:"max_items" mapstructure:"max_items"`
	SkipMissingHandle    bool `yaml:"skip_missing_handle" mapstructure:"skip_missing_handle"`
	Concurrency          int  `yaml:"concurrency" mapstructure:"concurrency"`
}

// ReportConfig configures report rendering.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Suffix    string `yaml:"suffix" mapstructure:"suffix"`
	Workbook  bool   `yaml:"workbook" mapstructure:"workbook"`
}

// ArtifactsConfig configures the optional Supabase Storage mirror.
type ArtifactsConfig struct {
	SupabaseURL string `yaml:"supabase_url" mapstructure:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key" mapstructure:"supabase_key"`
	Bucket      string `yaml:"bucket" mapstructure:"bucket"`
}

// JobsConfig configures the background job runner.
type JobsConfig struct {
	Queue         string `yaml:"queue" mapstructure:"queue"`
	Workers       int    `yaml:"workers" mapstructure:"workers"`
	QueueSize     int    `yaml:"queue_size" mapstructure:"queue_size"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures run statistics and webhook alerting.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	PendingThreshold     int     `yaml:"pending_threshold" mapstructure:"pending_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Seconds converts a seconds setting to a duration, falling back to def when unset.
func Seconds(secs int, def time.Duration) time.Duration {
	if secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

// secretKeys are registered with empty defaults so AutomaticEnv can supply
// them during Unmarshal even when no config file mentions them.
var secretKeys = []string{
	"store.database_url",
	"notion.token",
	"notion.project_db",
	"perplexity.key",
	"anthropic.key",
	"gemini.key",
	"tavily.key",
	"jina.key",
	"firecrawl.key",
	"apify.token",
	"artifacts.supabase_url",
	"artifacts.supabase_key",
	"artifacts.bucket",
	"jobs.redis_password",
	"monitoring.webhook_url",
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, k := range secretKeys {
		v.SetDefault(k, "")
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "compintel.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("notion.approved_property", "Approved")
	v.SetDefault("notion.sweep_status", "In Progress")
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("gemini.model", "gemini-1.5-pro")
	v.SetDefault("discovery.provider", "perplexity")
	v.SetDefault("discovery.competitor_count", 5)
	v.SetDefault("discovery.timeout_secs", 90)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.search_depth", "advanced")
	v.SetDefault("tavily.max_results", 5)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.wait_secs", 60)
	v.SetDefault("apify.timeout_secs", 300)
	v.SetDefault("enrich.search_provider", "tavily")
	v.SetDefault("enrich.concurrency", 5)
	v.SetDefault("enrich.search_timeout_secs", 30)
	v.SetDefault("enrich.scrape_timeout_secs", 45)
	v.SetDefault("enrich.user_agent", "compintel/1.0")
	v.SetDefault("social.link_fetch_timeout_secs", 10)
	v.SetDefault("social.max_items", 5)
	v.SetDefault("social.skip_missing_handle", false)
	v.SetDefault("social.concurrency", 3)
	v.SetDefault("report.output_dir", "pdfs")
	v.SetDefault("report.suffix", "_competitor_analysis.pdf")
	v.SetDefault("report.workbook", false)
	v.SetDefault("jobs.queue", "memory")
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.queue_size", 64)
	v.SetDefault("jobs.redis_addr", "localhost:6379")
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.pending_threshold", 50)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Mode selects which credentials Validate requires.
type Mode string

const (
	// ModeServe runs the HTTP API and, with the memory queue, the workers.
	ModeServe Mode = "serve"
	// ModeRun executes a single pipeline run in the foreground.
	ModeRun Mode = "run"
	// ModeWorker consumes runs from the redis queue.
	ModeWorker Mode = "worker"
	// ModeRead only reads the run store.
	ModeRead Mode = "read"
)

// Validate checks that the settings required for the given mode are present.
func (c *Config) Validate(mode Mode) error {
	var missing []string
	req := func(ok bool, key string) {
		if !ok {
			missing = append(missing, key)
		}
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	req(c.Store.DatabaseURL != "", "store.database_url")

	if mode == ModeRead {
		return joinMissing(missing)
	}

	if mode == ModeServe || mode == ModeWorker {
		switch c.Jobs.Queue {
		case "memory":
			if mode == ModeWorker {
				return eris.New("config: worker mode requires jobs.queue=redis")
			}
		case "redis":
			req(c.Jobs.RedisAddr != "", "jobs.redis_addr")
		default:
			return eris.Errorf("config: unknown jobs.queue %q", c.Jobs.Queue)
		}
	}

	// Pipeline credentials are needed wherever runs execute.
	if mode == ModeServe && c.Jobs.Queue == "redis" {
		return joinMissing(missing)
	}

	switch c.Discovery.Provider {
	case "perplexity":
		req(c.Perplexity.Key != "", "perplexity.key")
	case "anthropic":
		req(c.Anthropic.Key != "", "anthropic.key")
	case "gemini":
		req(c.Gemini.Key != "", "gemini.key")
	default:
		return eris.Errorf("config: unknown discovery.provider %q", c.Discovery.Provider)
	}

	switch c.Enrich.SearchProvider {
	case "tavily":
		req(c.Tavily.Key != "", "tavily.key")
	case "jina":
		req(c.Jina.Key != "", "jina.key")
	default:
		return eris.Errorf("config: unknown enrich.search_provider %q", c.Enrich.SearchProvider)
	}

	req(c.Apify.Token != "", "apify.token")
	req(c.Report.OutputDir != "", "report.output_dir")

	return joinMissing(missing)
}

func joinMissing(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
