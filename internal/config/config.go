// Package config provides YAML-based configuration loading for opsdesk.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level opsdesk configuration, loaded from config.yaml.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Channel   ChannelConfig   `yaml:"channel"`
	Chat      ChatConfig      `yaml:"chat"`
	Storage   StorageConfig   `yaml:"storage"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Digest    DigestConfig    `yaml:"digest"`
}

// StoreConfig holds connection settings for the relational store.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ChannelConfig selects and configures the external messaging channel.
type ChannelConfig struct {
	Platform      string `yaml:"platform"` // "telegram", "slack", or "discord"
	Enabled       bool   `yaml:"enabled"`
	BotToken      string `yaml:"bot_token"`
	PrimaryChatID string `yaml:"primary_chat_id"`
	DashboardURL  string `yaml:"dashboard_url"`
	Language      string `yaml:"language"` // "ar" or "en"
}

// ChatConfig tunes the live chat listener.
type ChatConfig struct {
	PollIntervalSec      int    `yaml:"poll_interval_sec"`      // active-view full refresh
	SessionRefreshSec    int    `yaml:"session_refresh_sec"`    // background session-list refresh
	BannerTTLSec         int    `yaml:"banner_ttl_sec"`         // transient new-message banner
	ClaimFile            string `yaml:"claim_file"`             // local persisted claim set
	FeedURL              string `yaml:"feed_url"`               // websocket change feed (empty = in-process)
	ReconcileIntervalSec int    `yaml:"reconcile_interval_sec"` // claim reconciliation scan
}

// StorageConfig points at the object-storage bucket used as the
// attachment fallback. Optional; empty bucket disables the fallback.
type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DashboardConfig holds the console API server settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// DigestConfig schedules the daily delivery digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = "opsdesk.db"
	}
	if c.Store.Host == "" {
		c.Store.Host = "127.0.0.1"
	}
	if c.Store.Port == 0 {
		c.Store.Port = 3306
	}
	if c.Store.Database == "" {
		c.Store.Database = "opsdesk"
	}
	if c.Channel.Platform == "" {
		c.Channel.Platform = "telegram"
	}
	if c.Channel.Language == "" {
		c.Channel.Language = "ar"
	}
	if c.Chat.PollIntervalSec == 0 {
		c.Chat.PollIntervalSec = 5
	}
	if c.Chat.SessionRefreshSec == 0 {
		c.Chat.SessionRefreshSec = 30
	}
	if c.Chat.BannerTTLSec == 0 {
		c.Chat.BannerTTLSec = 5
	}
	if c.Chat.ClaimFile == "" {
		c.Chat.ClaimFile = "claimed_sessions.json"
	}
	if c.Chat.ReconcileIntervalSec == 0 {
		c.Chat.ReconcileIntervalSec = 60
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported (sqlite, mysql)", c.Store.Driver))
	}
	switch c.Channel.Platform {
	case "telegram", "slack", "discord":
	default:
		errs = append(errs, fmt.Sprintf("channel.platform %q is not supported (telegram, slack, discord)", c.Channel.Platform))
	}
	if c.Channel.Enabled && c.Channel.BotToken == "" {
		errs = append(errs, "channel.bot_token is required when the channel is enabled")
	}
	switch c.Channel.Language {
	case "ar", "en":
	default:
		errs = append(errs, fmt.Sprintf("channel.language %q is not supported (ar, en)", c.Channel.Language))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
