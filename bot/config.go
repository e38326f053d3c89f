// Package bot assembles the curation bot from the reusable core: capture
// flows, the moderation queue, and notification fan-out.
package bot

import (
	"fmt"
	"os"
	"time"

	coreconfig "curatorbot/core/config"
	coredatabase "curatorbot/core/database"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ModerationConfig lists the review team and the publication targets.
type ModerationConfig struct {
	Moderators []int64 `yaml:"moderators" envconfig:"MODERATORS"`
	Channels   []int64 `yaml:"channels" envconfig:"PUBLISH_CHANNELS"`
}

// SessionConfig tunes the capture session store.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" envconfig:"SESSION_TTL_MINUTES"`
}

// TTL returns the configured session lifetime (0 selects the store default).
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// PagingConfig bounds the moderation queue page size.
type PagingConfig struct {
	MinPageSize     int `yaml:"min_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	DefaultPageSize int `yaml:"default_page_size"`
}

// Config aggregates everything the curation bot needs to run.
type Config struct {
	Core       coreconfig.Config   `yaml:",inline"`
	Database   coredatabase.Config `yaml:"database"`
	Moderation ModerationConfig    `yaml:"moderation"`
	Session    SessionConfig       `yaml:"session"`
	Paging     PagingConfig        `yaml:"paging"`
	Categories []string            `yaml:"categories"`
}

// CoreConfig exposes the embedded core configuration for the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// LoadConfig reads the bot configuration from YAML plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Paging.MinPageSize <= 0 {
		cfg.Paging.MinPageSize = 3
	}
	if cfg.Paging.MaxPageSize < cfg.Paging.MinPageSize {
		cfg.Paging.MaxPageSize = 10
	}
	if cfg.Paging.DefaultPageSize < cfg.Paging.MinPageSize || cfg.Paging.DefaultPageSize > cfg.Paging.MaxPageSize {
		cfg.Paging.DefaultPageSize = 5
	}
}
