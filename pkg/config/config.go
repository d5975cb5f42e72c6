package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/llm"
)

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen        string        `yaml:"listen"`
		Timeout       time.Duration `yaml:"timeout"`
		TriggerSecret string        `yaml:"trigger_secret"`
	} `yaml:"server"`

	Database struct {
		DSN             string `yaml:"dsn"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
	} `yaml:"database"`

	Upstream UpstreamConfig `yaml:"upstream"`

	Ingest struct {
		ListIDs   []string      `yaml:"list_ids"`
		ListDelay time.Duration `yaml:"list_delay"`
	} `yaml:"ingest"`

	Quota struct {
		DailyLimits map[string]int `yaml:"daily_limits"`
	} `yaml:"quota"`

	Schedule struct {
		IngestInterval time.Duration `yaml:"ingest_interval"`
		EnrichInterval time.Duration `yaml:"enrich_interval"`
		MaxWorkers     int           `yaml:"max_workers"`
		EnrichBatch    int           `yaml:"enrich_batch"`
	} `yaml:"schedule"`

	LLM llm.Config `yaml:"llm"`
}

// UpstreamConfig holds settings for the timeline API provider
type UpstreamConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	APIHost      string        `yaml:"api_host"`
	MaxPages     int           `yaml:"max_pages"`
	Timeout      time.Duration `yaml:"timeout"`
	CallInterval time.Duration `yaml:"call_interval"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:xarticles.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for upstream
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://twitter241.p.rapidapi.com"
	}
	if cfg.Upstream.APIHost == "" {
		cfg.Upstream.APIHost = "twitter241.p.rapidapi.com"
	}
	if cfg.Upstream.MaxPages == 0 {
		cfg.Upstream.MaxPages = 10
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 15 * time.Second
	}
	if cfg.Upstream.CallInterval == 0 {
		cfg.Upstream.CallInterval = time.Second
	}

	// set defaults for ingest
	if cfg.Ingest.ListDelay == 0 {
		cfg.Ingest.ListDelay = 2 * time.Second
	}

	// set defaults for schedule
	if cfg.Schedule.IngestInterval == 0 {
		cfg.Schedule.IngestInterval = 30 * time.Minute
	}
	if cfg.Schedule.EnrichInterval == 0 {
		cfg.Schedule.EnrichInterval = 10 * time.Minute
	}
	if cfg.Schedule.MaxWorkers == 0 {
		cfg.Schedule.MaxWorkers = 4
	}
	if cfg.Schedule.EnrichBatch == 0 {
		cfg.Schedule.EnrichBatch = 20
	}

	// set defaults for LLM
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 500
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	// validate upstream config
	if cfg.Upstream.APIKey == "" {
		return fmt.Errorf("upstream.api_key is required")
	}
	if cfg.Upstream.MaxPages < 1 {
		return fmt.Errorf("upstream.max_pages must be at least 1")
	}

	// validate quota limits
	for key, limit := range cfg.Quota.DailyLimits {
		if limit < 0 {
			return fmt.Errorf("quota.daily_limits[%s] must be non-negative", key)
		}
	}

	// validate LLM config only when enrichment is on
	if cfg.LLM.Enabled {
		if cfg.LLM.Model == "" {
			return fmt.Errorf("llm.model is required when llm is enabled")
		}
		if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
			return fmt.Errorf("llm.temperature must be between 0 and 2")
		}
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetTriggerSecret returns the shared secret for the ingest trigger endpoint
func (c *Config) GetTriggerSecret() string {
	return c.Server.TriggerSecret
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() llm.Config {
	return c.LLM
}
