package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is constructed once at
// process start and passed into the engine; nothing mutates it afterwards.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Limits    LimitsConfig    `yaml:"limits" mapstructure:"limits"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend for jobs, recipe runs, and
// the classification cache.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// StorageConfig configures the artifact blob store.
type StorageConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// AnthropicConfig holds classifier API settings.
type AnthropicConfig struct {
	Key              string  `yaml:"key" mapstructure:"key"`
	Model            string  `yaml:"model" mapstructure:"model"`
	MaxBatchSize     int     `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	BatchTimeoutSecs int     `yaml:"batch_timeout_secs" mapstructure:"batch_timeout_secs"`
	MaxConcurrent    int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	CacheTTLDays     int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// EngineConfig configures recipe execution behavior.
type EngineConfig struct {
	// RulesFile optionally overrides the built-in name-exception and
	// company-suffix lists.
	RulesFile       string  `yaml:"rules_file" mapstructure:"rules_file"`
	ReviewThreshold float64 `yaml:"review_threshold" mapstructure:"review_threshold"`
	HybridFloor     float64 `yaml:"hybrid_floor" mapstructure:"hybrid_floor"`
	PreviewHead     int     `yaml:"preview_head" mapstructure:"preview_head"`
	PreviewTail     int     `yaml:"preview_tail" mapstructure:"preview_tail"`
	PreviewRandom   int     `yaml:"preview_random" mapstructure:"preview_random"`
}

// LimitsConfig holds per-plan row limits enforced at job admission.
type LimitsConfig struct {
	FreeMaxRows int `yaml:"free_max_rows" mapstructure:"free_max_rows"`
	ProMaxRows  int `yaml:"pro_max_rows" mapstructure:"pro_max_rows"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("DATACLEANER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "datacleaner.db")
	v.SetDefault("storage.dir", "artifacts")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_batch_size", 100)
	v.SetDefault("anthropic.batch_timeout_secs", 30)
	v.SetDefault("anthropic.max_concurrent", 4)
	v.SetDefault("anthropic.requests_per_sec", 5)
	v.SetDefault("anthropic.cache_ttl_days", 30)
	v.SetDefault("engine.rules_file", "")
	v.SetDefault("engine.review_threshold", 0.85)
	v.SetDefault("engine.hybrid_floor", 0.7)
	v.SetDefault("engine.preview_head", 10)
	v.SetDefault("engine.preview_tail", 10)
	v.SetDefault("engine.preview_random", 10)
	v.SetDefault("limits.free_max_rows", 5000)
	v.SetDefault("limits.pro_max_rows", 100000)
	v.SetDefault("server.port", 8080)
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
