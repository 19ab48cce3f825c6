// Package config loads triage-cli configuration from config.yaml, the
// environment and defaults, and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	KB         KBConfig         `yaml:"kb" mapstructure:"kb"`
	CrossCheck CrossCheckConfig `yaml:"crosscheck" mapstructure:"crosscheck"`
	DBpedia    DBpediaConfig    `yaml:"dbpedia" mapstructure:"dbpedia"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Ranker     RankerConfig     `yaml:"ranker" mapstructure:"ranker"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// KBConfig locates the condition knowledge base.
type KBConfig struct {
	Paths    []string `yaml:"paths" mapstructure:"paths"`
	Required bool     `yaml:"required" mapstructure:"required"`
}

// CrossCheckConfig configures candidate selection and enrichment.
type CrossCheckConfig struct {
	TopK                int     `yaml:"top_k" mapstructure:"top_k"`
	TopM                int     `yaml:"top_m" mapstructure:"top_m"`
	EnrichmentThreshold float64 `yaml:"enrichment_threshold" mapstructure:"enrichment_threshold"`
	EnrichmentEnabled   bool    `yaml:"enrichment_enabled" mapstructure:"enrichment_enabled"`
	LookupTimeoutSecs   int     `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
	RankTimeoutSecs     int     `yaml:"rank_timeout_secs" mapstructure:"rank_timeout_secs"`
	ResponseLimit       int     `yaml:"response_limit" mapstructure:"response_limit"`
}

// LookupTimeout returns LookupTimeoutSecs as a duration.
func (c CrossCheckConfig) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutSecs) * time.Second
}

// RankTimeout returns RankTimeoutSecs as a duration.
func (c CrossCheckConfig) RankTimeout() time.Duration {
	return time.Duration(c.RankTimeoutSecs) * time.Second
}

// DBpediaConfig configures the SPARQL lookup client and its cache.
type DBpediaConfig struct {
	Endpoint      string  `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLSecs  int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	CacheFailures bool    `yaml:"cache_failures" mapstructure:"cache_failures"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	PrewarmCount  int     `yaml:"prewarm_count" mapstructure:"prewarm_count"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns TimeoutSecs as a duration.
func (c DBpediaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheTTL returns CacheTTLSecs as a duration.
func (c DBpediaConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// StoreConfig configures the lookup cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	CacheDir    string `yaml:"cache_dir" mapstructure:"cache_dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RankerConfig selects the ranking backend.
type RankerConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
}

// AnthropicConfig holds Anthropic API settings for the Claude ranker.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy variable names, checked after the TRIAGE_ ones.
	for key, env := range map[string][]string{
		"dbpedia.endpoint":       {"TRIAGE_DBPEDIA_ENDPOINT", "DBPEDIA_ENDPOINT"},
		"dbpedia.cache_ttl_secs": {"TRIAGE_DBPEDIA_CACHE_TTL_SECS", "DBPEDIA_CACHE_TTL"},
		"dbpedia.timeout_secs":   {"TRIAGE_DBPEDIA_TIMEOUT_SECS", "DBPEDIA_TIMEOUT"},
	} {
		if err := v.BindEnv(append([]string{key}, env...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("kb.paths", []string{
		"packages/kb/conditions_enriched.json",
		"packages/kb/conditions.json",
		"../packages/kb/conditions.json",
	})
	v.SetDefault("kb.required", true)
	v.SetDefault("crosscheck.top_k", 10)
	v.SetDefault("crosscheck.top_m", 1)
	v.SetDefault("crosscheck.enrichment_threshold", 0.60)
	v.SetDefault("crosscheck.enrichment_enabled", true)
	v.SetDefault("crosscheck.lookup_timeout_secs", 8)
	v.SetDefault("crosscheck.rank_timeout_secs", 30)
	v.SetDefault("crosscheck.response_limit", 5)
	v.SetDefault("dbpedia.endpoint", "https://dbpedia.org/sparql")
	v.SetDefault("dbpedia.timeout_secs", 8)
	v.SetDefault("dbpedia.cache_ttl_secs", 60*60*24*30)
	v.SetDefault("dbpedia.cache_failures", true)
	v.SetDefault("dbpedia.rate_per_sec", 5.0)
	v.SetDefault("dbpedia.max_attempts", 2)
	v.SetDefault("dbpedia.prewarm_count", 8)
	v.SetDefault("dbpedia.user_agent", "triage-cli/1.0 (+https://github.com/curasense/triage-cli)")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.cache_dir", "data/dbpedia_cache")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("ranker.provider", "lexical")
	v.SetDefault("ranker.max_results", 5)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
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

// Validate checks the configuration for the given command mode: "serve",
// "analyze" or "cache". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "analyze":
		if c.CrossCheck.TopK <= 0 {
			errs = append(errs, "crosscheck.top_k must be > 0")
		}
		if c.CrossCheck.TopM < 0 || c.CrossCheck.TopM > c.CrossCheck.TopK {
			errs = append(errs, "crosscheck.top_m must be between 0 and crosscheck.top_k")
		}
		if c.CrossCheck.EnrichmentThreshold < 0 || c.CrossCheck.EnrichmentThreshold > 1 {
			errs = append(errs, "crosscheck.enrichment_threshold must be between 0 and 1")
		}
		if c.CrossCheck.LookupTimeoutSecs <= 0 {
			errs = append(errs, "crosscheck.lookup_timeout_secs must be > 0")
		}
		if c.CrossCheck.RankTimeoutSecs <= 0 {
			errs = append(errs, "crosscheck.rank_timeout_secs must be > 0")
		}
		if c.CrossCheck.ResponseLimit <= 0 {
			errs = append(errs, "crosscheck.response_limit must be > 0")
		}
		switch c.Ranker.Provider {
		case "lexical":
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required for ranker.provider=anthropic")
			}
		default:
			errs = append(errs, "ranker.provider must be one of lexical, anthropic")
		}
		if c.CrossCheck.EnrichmentEnabled {
			if c.DBpedia.Endpoint == "" {
				errs = append(errs, "dbpedia.endpoint is required when enrichment is enabled")
			}
			if c.DBpedia.TimeoutSecs <= 0 {
				errs = append(errs, "dbpedia.timeout_secs must be > 0")
			}
			errs = append(errs, c.validateStore()...)
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "cache":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	if c.DBpedia.CacheTTLSecs <= 0 {
		errs = append(errs, "dbpedia.cache_ttl_secs must be > 0")
	}
	switch c.Store.Driver {
	case "file":
		if c.Store.CacheDir == "" {
			errs = append(errs, "store.cache_dir is required for driver file")
		}
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for driver "+c.Store.Driver)
		}
	default:
		errs = append(errs, "store.driver must be one of file, sqlite, postgres")
	}
	return errs
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
