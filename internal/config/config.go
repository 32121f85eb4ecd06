package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Analytics  AnalyticsConfig  `yaml:"analytics" mapstructure:"analytics"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Grok       GrokConfig       `yaml:"grok" mapstructure:"grok"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend. For the sqlite driver,
// database_url is a file path.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AuditConfig configures audit execution.
type AuditConfig struct {
	Platforms             []string `yaml:"platforms" mapstructure:"platforms"`
	IncludeSearchVariants bool     `yaml:"include_search_variants" mapstructure:"include_search_variants"`
	MaxConcurrentQueries  int      `yaml:"max_concurrent_queries" mapstructure:"max_concurrent_queries"`
	QueryTimeoutSecs      int      `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	MaxTokens             int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	// PlatformRPS caps request rate per platform. PlatformBurst allows
	// short bursts above it.
	PlatformRPS   float64 `yaml:"platform_rps" mapstructure:"platform_rps"`
	PlatformBurst int     `yaml:"platform_burst" mapstructure:"platform_burst"`
}

// AnalyticsConfig configures scoring.
type AnalyticsConfig struct {
	// TablesPath points at a YAML override for the scoring tables.
	// Empty means the built-in table set.
	TablesPath string `yaml:"tables_path" mapstructure:"tables_path"`
}

// CacheConfig configures the Redis analytics cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	RedisURL   string `yaml:"redis_url" mapstructure:"redis_url"`
	TTLMinutes int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TemporalConfig configures the Temporal client and worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// OpenAIConfig holds OpenAI API settings for the chatgpt platform.
type OpenAIConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	SearchModel string `yaml:"search_model" mapstructure:"search_model"`
}

// AnthropicConfig holds Anthropic API settings for the claude platform.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	SearchMaxUses int    `yaml:"search_max_uses" mapstructure:"search_max_uses"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GrokConfig holds xAI Grok API settings.
type GrokConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// NotionConfig holds Notion API credentials and the audit database ID.
type NotionConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	AuditDB string `yaml:"audit_db" mapstructure:"audit_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// PricingConfig holds per-platform token pricing.
type PricingConfig struct {
	Platforms map[string]ModelPricing `yaml:"platforms" mapstructure:"platforms"`
}

// ModelPricing holds token pricing in USD per million tokens, plus an
// optional flat per-query charge.
type ModelPricing struct {
	Input    float64 `yaml:"input" mapstructure:"input"`
	Output   float64 `yaml:"output" mapstructure:"output"`
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// ReportConfig configures report generation.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Format    string `yaml:"format" mapstructure:"format"`
}

// MonitoringConfig configures the background alert checker run by the
// serve command. Alerts fire only when webhook_url is set.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	DLQDepthThreshold    int     `yaml:"dlq_depth_threshold" mapstructure:"dlq_depth_threshold"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PRESENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "presence.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("audit.platforms", []string{"chatgpt", "claude", "perplexity", "gemini", "grok"})
	v.SetDefault("audit.include_search_variants", true)
	v.SetDefault("audit.max_concurrent_queries", 4)
	v.SetDefault("audit.query_timeout_secs", 120)
	v.SetDefault("audit.max_tokens", 1024)
	v.SetDefault("audit.platform_rps", 1.0)
	v.SetDefault("audit.platform_burst", 2)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl_minutes", 60)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "presence-audit")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.search_model", "gpt-4o-search-preview")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.search_max_uses", 3)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("grok.base_url", "https://api.x.ai/v1")
	v.SetDefault("grok.model", "grok-4")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.dlq_depth_threshold", 25)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("pricing.platforms.chatgpt.input", 2.50)
	v.SetDefault("pricing.platforms.chatgpt.output", 10.00)
	v.SetDefault("pricing.platforms.claude.input", 3.00)
	v.SetDefault("pricing.platforms.claude.output", 15.00)
	v.SetDefault("pricing.platforms.perplexity.input", 3.00)
	v.SetDefault("pricing.platforms.perplexity.output", 15.00)
	v.SetDefault("pricing.platforms.perplexity.per_query", 0.005)
	v.SetDefault("pricing.platforms.gemini.input", 0.30)
	v.SetDefault("pricing.platforms.gemini.output", 2.50)
	v.SetDefault("pricing.platforms.grok.input", 3.00)
	v.SetDefault("pricing.platforms.grok.output", 15.00)
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.format", "markdown")

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

// Validate checks the configuration required for the given mode. Modes
// map to command groups: "audit" runs platform queries, "analyze" only
// reads the store, "serve" exposes the HTTP API, "worker" runs the
// Temporal worker, and "export" pushes results to Notion or Salesforce.
func (c *Config) Validate(mode string) error {
	var errs []string

	requireStore := func() {
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}

	switch mode {
	case "audit":
		requireStore()
		if len(c.Audit.Platforms) == 0 {
			errs = append(errs, "audit.platforms must not be empty")
		}
		if c.Audit.MaxConcurrentQueries < 1 || c.Audit.MaxConcurrentQueries > 32 {
			errs = append(errs, "audit.max_concurrent_queries must be between 1 and 32")
		}
		if !c.hasAnyPlatformKey() {
			errs = append(errs, "at least one platform API key is required")
		}
	case "analyze":
		requireStore()
	case "serve":
		requireStore()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "worker":
		requireStore()
		if c.Temporal.HostPort == "" {
			errs = append(errs, "temporal.host_port is required")
		}
		if c.Temporal.TaskQueue == "" {
			errs = append(errs, "temporal.task_queue is required")
		}
		if !c.hasAnyPlatformKey() {
			errs = append(errs, "at least one platform API key is required")
		}
	case "export":
		requireStore()
		if c.Notion.Token == "" && c.Salesforce.ClientID == "" {
			errs = append(errs, "notion.token or salesforce.client_id is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) hasAnyPlatformKey() bool {
	return c.OpenAI.Key != "" || c.Anthropic.Key != "" || c.Perplexity.Key != "" ||
		c.Gemini.Key != "" || c.Grok.Key != ""
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
