// Package config loads ofertabot's configuration from a YAML file with
// environment variable overrides. The token is the only hard requirement;
// everything else has a workable default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Config is the full runtime configuration.
//
// All durations are Go duration strings (e.g. "30s", "10m").
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Listing  ListingConfig  `yaml:"listing"`
	Filters  FiltersConfig  `yaml:"filters"`
	Poll     PollConfig     `yaml:"poll"`
	Notifier NotifierConfig `yaml:"notifier"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Health   HealthConfig   `yaml:"health"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// DefaultChatID always receives broadcasts, on top of registered
	// subscribers. Zero disables it.
	DefaultChatID int64  `yaml:"default_chat_id"`
	PollTimeout   string `yaml:"poll_timeout"`
}

type ListingConfig struct {
	BaseURL           string `yaml:"base_url"`
	ListingURL        string `yaml:"listing_url"`
	Timeout           string `yaml:"timeout"`
	OmitMidnightTimes bool   `yaml:"omit_midnight_times"`
}

type FiltersConfig struct {
	Rows     int    `yaml:"rows"`
	District string `yaml:"district"`
	Status   string `yaml:"status"`
}

type PollConfig struct {
	Interval     string `yaml:"interval"`
	CycleTimeout string `yaml:"cycle_timeout"`
}

type NotifierConfig struct {
	RatePerSec int `yaml:"rate_per_sec"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"`
	RedisURL    string `yaml:"redis_url"`
}

type LoggingConfig struct {
	Level   string            `yaml:"level"`
	Console bool              `yaml:"console"`
	File    LoggingFileConfig `yaml:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads path (missing file is fine: defaults plus environment),
// applies env overrides and validates.
func Load(path string) (*Config, error) {
	cfg := defaults()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeout: "10s"},
		Listing: ListingConfig{
			Timeout:           "30s",
			OmitMidnightTimes: true,
		},
		Filters:  FiltersConfig{Rows: 100, Status: "Publicada"},
		Poll:     PollConfig{Interval: "10m", CycleTimeout: "2m"},
		Notifier: NotifierConfig{RatePerSec: 10},
		Storage:  StorageConfig{Driver: "file", Path: "./data/ofertabot"},
		Logging:  LoggingConfig{Level: "info", Console: true},
		Health:   HealthConfig{Enabled: true, Addr: ":8080"},
	}
}

// applyEnv lets the usual deployment variables win over the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("DEFAULT_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.DefaultChatID = id
		}
	}
	if v := os.Getenv("OFFER_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Filters.Rows = n
		}
	}
	if v := os.Getenv("OFFER_DISTRICT"); v != "" {
		c.Filters.District = v
	}
	if v := os.Getenv("OFFER_STATUS"); v != "" {
		c.Filters.Status = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Health.Addr = ":" + v
	}
}

// Validate enforces the fail-fast requirements.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram token is required (telegram.token or BOT_TOKEN)")
	}
	if c.Filters.Rows <= 0 {
		return fmt.Errorf("filters.rows must be positive, got %d", c.Filters.Rows)
	}
	for name, v := range map[string]string{
		"telegram.poll_timeout": c.Telegram.PollTimeout,
		"listing.timeout":       c.Listing.Timeout,
		"poll.interval":         c.Poll.Interval,
		"poll.cycle_timeout":    c.Poll.CycleTimeout,
		"storage.busy_timeout":  c.Storage.BusyTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Duration parses a duration field, falling back to def when the field is
// empty or invalid (Validate already rejects invalid values at load time).
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
