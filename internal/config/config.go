package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"doctriage/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Providers    ProvidersConfig
	Engine       EngineConfig
	Warming      WarmingConfig
	Metrics      MetricsConfig
	Classify     ClassifyConfig
	Consolidator ConsolidatorConfig
	S3           S3Config
}

// ConsolidatorConfig holds batching/adaptive extension settings. An empty
// endpoint disables consolidation.
type ConsolidatorConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// ProviderConfig holds settings for a single provider.
type ProviderConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	Claude ProviderConfig `mapstructure:"claude"`
	Gemini ProviderConfig `mapstructure:"gemini"`
	OpenAI ProviderConfig `mapstructure:"openai"`
	OCR    ProviderConfig `mapstructure:"ocr"`
}

// ByID returns the config block for a provider ID, or nil for unknown IDs.
func (p *ProvidersConfig) ByID(id domain.ProviderID) *ProviderConfig {
	switch id {
	case domain.ProviderClaude:
		return &p.Claude
	case domain.ProviderGemini:
		return &p.Gemini
	case domain.ProviderOpenAI:
		return &p.OpenAI
	case domain.ProviderOCR:
		return &p.OCR
	}
	return nil
}

// EngineConfig holds execution engine settings.
type EngineConfig struct {
	RaceDeadlineSecs   int   `mapstructure:"race_deadline_secs"`
	AttemptTimeoutSecs int   `mapstructure:"attempt_timeout_secs"`
	MaxFileSizeMB      int64 `mapstructure:"max_file_size_mb"`
}

// RaceDeadline returns the racing hard deadline as a duration.
func (e *EngineConfig) RaceDeadline() time.Duration {
	return time.Duration(e.RaceDeadlineSecs) * time.Second
}

// AttemptTimeout returns the per-attempt cascade timeout as a duration.
func (e *EngineConfig) AttemptTimeout() time.Duration {
	return time.Duration(e.AttemptTimeoutSecs) * time.Second
}

// WarmingConfig holds warm-session manager settings.
type WarmingConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	HeartbeatSecs    int  `mapstructure:"heartbeat_secs"`
	FailureThreshold int  `mapstructure:"failure_threshold"`
}

// HeartbeatInterval returns the per-provider heartbeat interval.
func (w *WarmingConfig) HeartbeatInterval() time.Duration {
	return time.Duration(w.HeartbeatSecs) * time.Second
}

// MetricsConfig holds metrics reporter settings.
type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// ClassifyConfig holds classifier settings.
type ClassifyConfig struct {
	EscalationThreshold int `mapstructure:"escalation_threshold"`
}

// S3Config holds AWS S3 settings for s3:// document sources.
type S3Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Load reads configuration from config.yaml (if present) and environment
// variables prefixed with DOCTRIAGE_.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCTRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// Provider defaults
	v.SetDefault("providers.claude.enabled", true)
	v.SetDefault("providers.claude.api_key", "")
	v.SetDefault("providers.claude.default_model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.claude.timeout_secs", 120)
	v.SetDefault("providers.gemini.enabled", true)
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.default_model", "gemini-2.0-flash")
	v.SetDefault("providers.gemini.timeout_secs", 120)
	v.SetDefault("providers.openai.enabled", true)
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.default_model", "gpt-4o")
	v.SetDefault("providers.openai.timeout_secs", 120)
	v.SetDefault("providers.ocr.enabled", true)
	v.SetDefault("providers.ocr.timeout_secs", 300)

	// Engine defaults
	v.SetDefault("engine.race_deadline_secs", 12)
	v.SetDefault("engine.attempt_timeout_secs", 12)
	v.SetDefault("engine.max_file_size_mb", 50)

	// Warming defaults
	v.SetDefault("warming.enabled", true)
	v.SetDefault("warming.heartbeat_secs", 60)
	v.SetDefault("warming.failure_threshold", 3)

	// Metrics defaults
	v.SetDefault("metrics.buffer_size", 256)

	// Classifier defaults
	v.SetDefault("classify.escalation_threshold", 70)

	// Consolidator defaults (disabled unless an endpoint is set)
	v.SetDefault("consolidator.endpoint", "")
	v.SetDefault("consolidator.timeout_secs", 120)

	// S3 defaults
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; env vars and defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// API keys may also arrive through conventional env names.
	applyEnvKey(&cfg.Providers.Claude, "ANTHROPIC_API_KEY")
	applyEnvKey(&cfg.Providers.Gemini, "GEMINI_API_KEY")
	applyEnvKey(&cfg.Providers.OpenAI, "OPENAI_API_KEY")

	return &cfg, nil
}

func applyEnvKey(pc *ProviderConfig, envName string) {
	if pc.APIKey == "" {
		pc.APIKey = os.Getenv(envName)
	}
}
