package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is built once at
// startup and treated as immutable for the lifetime of every investigation.
type Config struct {
	Pipeline   PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Anthropic  AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	LogSearch  SourceConfig    `yaml:"log_search" mapstructure:"log_search"`
	MetricFeed SourceConfig    `yaml:"metric_feed" mapstructure:"metric_feed"`
	DeployFeed SourceConfig    `yaml:"deploy_feed" mapstructure:"deploy_feed"`
	Trigger    TriggerConfig   `yaml:"trigger" mapstructure:"trigger"`
	Actions    ActionsConfig   `yaml:"actions" mapstructure:"actions"`
	Store      StoreConfig     `yaml:"store" mapstructure:"store"`
	Server     ServerConfig    `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log        LogConfig       `yaml:"log" mapstructure:"log"`
}

// PipelineConfig holds the budgets and thresholds governing one investigation.
type PipelineConfig struct {
	TotalDeadlineSecs    int     `yaml:"total_deadline_secs" mapstructure:"total_deadline_secs"`
	AgentDeadlineSecs    int     `yaml:"agent_deadline_secs" mapstructure:"agent_deadline_secs"`
	LookbackMinutes      int     `yaml:"lookback_minutes" mapstructure:"lookback_minutes"`
	MinConfidence        float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	MaterialityThreshold float64 `yaml:"materiality_threshold" mapstructure:"materiality_threshold"`
}

// TotalDeadline returns the whole-investigation wall-clock budget.
func (p PipelineConfig) TotalDeadline() time.Duration {
	return time.Duration(p.TotalDeadlineSecs) * time.Second
}

// AgentDeadline returns the per-agent budget.
func (p PipelineConfig) AgentDeadline() time.Duration {
	return time.Duration(p.AgentDeadlineSecs) * time.Second
}

// Lookback returns the evidence window size ending at the alert timestamp.
func (p PipelineConfig) Lookback() time.Duration {
	return time.Duration(p.LookbackMinutes) * time.Minute
}

// AnthropicConfig holds reasoning-step API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SourceConfig holds the connection settings for one evidence source backend.
type SourceConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Key         string  `yaml:"key" mapstructure:"key"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// TriggerConfig controls when a log-subscription batch is worth investigating.
type TriggerConfig struct {
	MinErrors       int     `yaml:"min_errors" mapstructure:"min_errors"`
	MinErrorsPerMin float64 `yaml:"min_errors_per_min" mapstructure:"min_errors_per_min"`
}

// ActionsConfig configures the remediation rule set.
type ActionsConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// StoreConfig configures the report persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BatchConfig configures concurrent batch investigation.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMMANDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pipeline.total_deadline_secs", 120)
	v.SetDefault("pipeline.agent_deadline_secs", 30)
	v.SetDefault("pipeline.lookback_minutes", 30)
	v.SetDefault("pipeline.min_confidence", 0.5)
	v.SetDefault("pipeline.materiality_threshold", 0.1)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("log_search.rate_per_sec", 5)
	v.SetDefault("log_search.timeout_secs", 20)
	v.SetDefault("metric_feed.rate_per_sec", 5)
	v.SetDefault("metric_feed.timeout_secs", 20)
	v.SetDefault("deploy_feed.rate_per_sec", 5)
	v.SetDefault("deploy_feed.timeout_secs", 20)
	v.SetDefault("trigger.min_errors", 5)
	v.SetDefault("trigger.min_errors_per_min", 2.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "commander.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
