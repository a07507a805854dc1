package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Queue       QueueConfig     `toml:"queue"`
	Cache       CacheConfig     `toml:"cache"`
	RateLimits  RateLimitConfig `toml:"rate_limits"`
	Scan        ScanConfig      `toml:"scan"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Providers   ProvidersConfig `toml:"providers"`
	Evaluator   EvaluatorConfig `toml:"evaluator"`
	Keywords    KeywordsConfig  `toml:"keywords"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g. "1s" - how often workers poll for messages
	ScanConcurrency   int    `toml:"scan_concurrency"`   // Scan worker pool size
	EvalConcurrency   int    `toml:"eval_concurrency"`   // Evaluation worker pool size
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g. "5m" - message visibility timeout for redelivery
	MaxReceive        int    `toml:"max_receive"`        // Max times a message can be received before dead-letter
	RetryBackoffBase  string `toml:"retry_backoff_base"` // Base delay for exponential retry backoff
}

type CacheConfig struct {
	TTL string `toml:"ttl"` // Answer cache entry lifetime, e.g. "24h"
}

// RateLimitConfig holds the fixed-window policies. Each window admits up to
// Limit increments; the window expiry is set on the first increment only.
type RateLimitConfig struct {
	API       RateLimitPolicyConfig `toml:"api"`
	ScanQuota RateLimitPolicyConfig `toml:"scan_quota"`
	Auth      RateLimitPolicyConfig `toml:"auth"`
}

type RateLimitPolicyConfig struct {
	Limit    int    `toml:"limit"`
	Window   string `toml:"window"`    // e.g. "1m", "24h"
	FailMode string `toml:"fail_mode"` // "open" or "closed" on store failure
}

type ScanConfig struct {
	EngineDelay     string `toml:"engine_delay"`     // Delay between probes of different engines for one keyword
	ProviderTimeout string `toml:"provider_timeout"` // Timeout for a single provider call
}

type SchedulerConfig struct {
	JitterMaxMinutes int `toml:"jitter_max_minutes"` // Upper bound for per-keyword jitter offset
}

type ProvidersConfig struct {
	OpenAI OpenAIConfig `toml:"openai"`
	Gemini GeminiConfig `toml:"gemini"`
	Claude ClaudeConfig `toml:"claude"`
}

// OpenAIConfig contains OpenAI answer-engine configuration
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // default: "gpt-4o-mini"
	RateLimit   string  `toml:"rate_limit"` // Minimum interval between calls, e.g. "1s"
	Temperature float64 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // default: "gemini-3-flash-preview"
	RateLimit   string  `toml:"rate_limit"` // default: "4s" (15 RPM free tier)
	Temperature float64 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // default: "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"` // default: 4096
	RateLimit   string  `toml:"rate_limit"` // default: "1s"
	Temperature float64 `toml:"temperature"`
}

// EvaluatorConfig configures the LLM-as-judge evaluation stage
type EvaluatorConfig struct {
	Provider        string `toml:"provider"`         // Judge provider: "claude" or "gemini"
	CorrectionModel string `toml:"correction_model"` // Model for the auto-correction pass (empty = judge model)
	Timeout         string `toml:"timeout"`          // Judge call timeout, e.g. "2m"
}

// KeywordsConfig contains configuration for keyword seed files
type KeywordsConfig struct {
	DefinitionsDir string `toml:"definitions_dir"` // Directory containing keyword definition files (TOML)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings should be exposed in brandlens.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			ScanConcurrency:   3, // Scan probes hit external engines, keep this low
			EvalConcurrency:   8, // Evaluation is not externally rate limited the same way
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			RetryBackoffBase:  "30s",
		},
		Cache: CacheConfig{
			TTL: "24h", // Entries also roll over naturally at UTC day boundaries
		},
		RateLimits: RateLimitConfig{
			API:       RateLimitPolicyConfig{Limit: 120, Window: "1m", FailMode: "open"},
			ScanQuota: RateLimitPolicyConfig{Limit: 50, Window: "24h", FailMode: "open"},
			Auth:      RateLimitPolicyConfig{Limit: 10, Window: "15m", FailMode: "closed"},
		},
		Scan: ScanConfig{
			EngineDelay:     "5s",
			ProviderTimeout: "60s",
		},
		Scheduler: SchedulerConfig{
			JitterMaxMinutes: 59,
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				Model:       "gpt-4o-mini",
				RateLimit:   "1s",
				Temperature: 0.3,
			},
			Gemini: GeminiConfig{
				Model:       "gemini-3-flash-preview",
				RateLimit:   "4s", // 15 RPM free tier
				Temperature: 0.3,
			},
			Claude: ClaudeConfig{
				Model:       "claude-haiku-3-5-20241022",
				MaxTokens:   4096,
				RateLimit:   "1s",
				Temperature: 0.3,
			},
		},
		Evaluator: EvaluatorConfig{
			Provider: "claude",
			Timeout:  "2m",
		},
		Keywords: KeywordsConfig{
			DefinitionsDir: "./keyword-definitions",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier ones. Priority: CLI flags > environment variables > last file > ... > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BRANDLENS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("BRANDLENS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("BRANDLENS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("BRANDLENS_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("BRANDLENS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("BRANDLENS_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitString(output, ",")
	}

	// Provider API keys follow the upstream SDK conventions first
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && config.Providers.OpenAI.APIKey == "" {
		config.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Providers.Gemini.APIKey == "" {
		config.Providers.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Providers.Claude.APIKey == "" {
		config.Providers.Claude.APIKey = key
	}
	if key := os.Getenv("BRANDLENS_OPENAI_API_KEY"); key != "" {
		config.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("BRANDLENS_GEMINI_API_KEY"); key != "" {
		config.Providers.Gemini.APIKey = key
	}
	if key := os.Getenv("BRANDLENS_CLAUDE_API_KEY"); key != "" {
		config.Providers.Claude.APIKey = key
	}

	if provider := os.Getenv("BRANDLENS_EVALUATOR_PROVIDER"); provider != "" {
		config.Evaluator.Provider = provider
	}

	if dir := os.Getenv("BRANDLENS_KEYWORDS_DIR"); dir != "" {
		config.Keywords.DefinitionsDir = dir
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ParseDurationOr parses a duration string, falling back to def when the
// string is empty or malformed. Config durations are advisory, not fatal.
func ParseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// splitString splits a string by separator and trims whitespace
func splitString(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
