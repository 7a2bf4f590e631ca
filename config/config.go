package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Schema     SchemaConfig
	Matching   MatchingConfig
	Cache      CacheConfig
	Evaluation EvaluationConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LLMConfig holds completion service configuration
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"` // "ollama" or "openai"
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	JSONMode          bool          `mapstructure:"json_mode"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Retries           int           `mapstructure:"retries"`
}

// SchemaConfig points at the taxonomy document
type SchemaConfig struct {
	Path           string `mapstructure:"path"`
	PromptTemplate string `mapstructure:"prompt_template"`
}

// MatchingConfig holds fuzzy matching configuration
type MatchingConfig struct {
	Threshold            float64 `mapstructure:"threshold"`
	Metric               string  `mapstructure:"metric"` // "ratcliff" or "levenshtein"
	MaxDescriptionLength int     `mapstructure:"max_description_length"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory", "redis" or "none"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// EvaluationConfig holds evaluation harness configuration
type EvaluationConfig struct {
	DatasetPath string `mapstructure:"dataset_path"`
	SampleSize  int    `mapstructure:"sample_size"`
	Seed        int64  `mapstructure:"seed"`
	Concurrency int    `mapstructure:"concurrency"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// Load loads configuration from environment variables and config files.
// An empty path searches the default locations for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/attrlens/")
	}

	// Environment variable settings
	v.SetEnvPrefix("ATTRLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadEnvFile loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadEnvFile() error {
	return loadEnvFile()
}

func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// LLM defaults
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "mistral")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.json_mode", true)
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 4)
	v.SetDefault("llm.retries", 0)

	// Schema defaults
	v.SetDefault("schema.path", "schema.json")
	v.SetDefault("schema.prompt_template", "")

	// Matching defaults
	v.SetDefault("matching.threshold", 0.80)
	v.SetDefault("matching.metric", "ratcliff")
	v.SetDefault("matching.max_description_length", 1000)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h")

	// Evaluation defaults
	v.SetDefault("evaluation.dataset_path", "archive/amazon-products.csv")
	v.SetDefault("evaluation.sample_size", 50)
	v.SetDefault("evaluation.seed", 42)
	v.SetDefault("evaluation.concurrency", 1)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.LLM.Provider != "ollama" && config.LLM.Provider != "openai" {
		return fmt.Errorf("llm provider must be 'ollama' or 'openai', got: %s", config.LLM.Provider)
	}

	if config.LLM.Model == "" {
		return fmt.Errorf("llm model is required (set ATTRLENS_LLM_MODEL)")
	}

	if config.LLM.BaseURL == "" {
		return fmt.Errorf("llm base URL is required (set ATTRLENS_LLM_BASE_URL)")
	}

	if config.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got: %s", config.LLM.Timeout)
	}

	if config.Matching.Threshold <= 0 || config.Matching.Threshold > 1 {
		return fmt.Errorf("matching threshold must be in (0, 1], got: %v", config.Matching.Threshold)
	}

	if config.Matching.Metric != "ratcliff" && config.Matching.Metric != "levenshtein" {
		return fmt.Errorf("matching metric must be 'ratcliff' or 'levenshtein', got: %s", config.Matching.Metric)
	}

	switch config.Cache.Type {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache type must be 'memory', 'redis' or 'none', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Evaluation.SampleSize < 1 {
		return fmt.Errorf("evaluation sample size must be at least 1, got: %d", config.Evaluation.SampleSize)
	}

	if config.Evaluation.Concurrency < 1 {
		return fmt.Errorf("evaluation concurrency must be at least 1, got: %d", config.Evaluation.Concurrency)
	}

	switch config.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of trace, debug, info, warn, error, got: %s", config.Log.Level)
	}

	return nil
}
