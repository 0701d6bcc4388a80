package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theneilagencia/glimora-sub000/internal/db"
	"github.com/theneilagencia/glimora-sub000/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Decisor    DecisorConfig    `yaml:"decisor" mapstructure:"decisor"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" mapstructure:"scheduler"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ApifyConfig holds the scraping provider settings.
type ApifyConfig struct {
	Token           string  `yaml:"token" mapstructure:"token"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	ActorID         string  `yaml:"actor_id" mapstructure:"actor_id"`
	PollIntervalSec int     `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollCapSecs     int     `yaml:"poll_cap_secs" mapstructure:"poll_cap_secs"`
	PollTimeoutSecs int     `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// DecisorConfig tunes reconciliation and scoring.
type DecisorConfig struct {
	EmployeeLimit int    `yaml:"employee_limit" mapstructure:"employee_limit"`
	KeywordsPath  string `yaml:"keywords_path" mapstructure:"keywords_path"`
}

// ResilienceConfig configures retries and the provider circuit breaker.
type ResilienceConfig struct {
	Retry   resilience.RetrySettings   `yaml:"retry" mapstructure:"retry"`
	Circuit resilience.CircuitSettings `yaml:"circuit" mapstructure:"circuit"`
}

// SchedulerConfig configures the periodic organization sync run by serve.
type SchedulerConfig struct {
	Enabled         bool     `yaml:"enabled" mapstructure:"enabled"`
	IntervalMins    int      `yaml:"interval_mins" mapstructure:"interval_mins"`
	OrganizationIDs []string `yaml:"organization_ids" mapstructure:"organization_ids"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// SyncTimeoutSecs caps one sync request. 0 leaves it bound to the client.
	SyncTimeoutSecs int `yaml:"sync_timeout_secs" mapstructure:"sync_timeout_secs"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
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
	v.SetEnvPrefix("GLIMORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("apify.token", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actor_id", "harvestapi~linkedin-company-employees")
	v.SetDefault("apify.poll_interval_secs", 2)
	v.SetDefault("apify.poll_cap_secs", 15)
	v.SetDefault("apify.poll_timeout_secs", 300)
	v.SetDefault("apify.rate_limit", 5)
	v.SetDefault("decisor.employee_limit", 50)
	v.SetDefault("decisor.keywords_path", "")
	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.initial_backoff_ms", 500)
	v.SetDefault("resilience.retry.max_backoff_ms", 30000)
	v.SetDefault("resilience.retry.multiplier", 2.0)
	v.SetDefault("resilience.retry.jitter_fraction", 0.25)
	v.SetDefault("resilience.circuit.failure_threshold", 5)
	v.SetDefault("resilience.circuit.reset_timeout_secs", 30)
	v.SetDefault("resilience.circuit.half_open_probes", 1)
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval_mins", 24*60)
	v.SetDefault("scheduler.organization_ids", []string{})
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.sync_timeout_secs", 600)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "glimora")
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

// Validate checks the settings a command needs. mode is one of "sync",
// "serve", "migrate" or "account".
func (c *Config) Validate(mode string) error {
	switch mode {
	case "sync", "serve", "migrate", "account":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	var errs []string

	switch c.Store.Driver {
	case "postgres", "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be postgres or sqlite", c.Store.Driver))
	}

	if mode == "sync" || mode == "serve" {
		if c.Apify.Token == "" {
			errs = append(errs, "apify.token is required")
		}
		if c.Decisor.EmployeeLimit <= 0 {
			errs = append(errs, "decisor.employee_limit must be > 0")
		}
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.SyncTimeoutSecs < 0 {
			errs = append(errs, "server.sync_timeout_secs must be >= 0")
		}
		if c.Scheduler.Enabled {
			if c.Scheduler.IntervalMins <= 0 {
				errs = append(errs, "scheduler.interval_mins must be > 0")
			}
			if len(c.Scheduler.OrganizationIDs) == 0 {
				errs = append(errs, "scheduler.organization_ids is required when the scheduler is enabled")
			}
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
