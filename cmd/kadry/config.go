package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the kadry configuration. Values come from the defaults, then
// the YAML file, then KADRY_* environment variables.
type Config struct {
	Listen          string `yaml:"listen" env:"KADRY_LISTEN"`
	DBPath          string `yaml:"db_path" env:"KADRY_DB_PATH"`
	MediaDir        string `yaml:"media_dir" env:"KADRY_MEDIA_DIR"`
	MediaURL        string `yaml:"media_url" env:"KADRY_MEDIA_URL"`
	MaxFileMB       int    `yaml:"max_file_mb" env:"KADRY_MAX_FILE_MB"`
	LogLevel        string `yaml:"log_level" env:"KADRY_LOG_LEVEL"`
	InitialPassword string `yaml:"initial_password" env:"KADRY_INITIAL_PASSWORD"`
	MCPStdio        bool   `yaml:"mcp_stdio" env:"KADRY_MCP_STDIO"`
	// EventRetentionDays prunes the event log at startup. 0 keeps everything.
	EventRetentionDays int `yaml:"event_retention_days" env:"KADRY_EVENT_RETENTION_DAYS"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:    ":8080",
		DBPath:    "kadry.db",
		MediaDir:  "media",
		MediaURL:  "/media/",
		MaxFileMB: 20,
		LogLevel:  "info",
	}
}

// LoadConfig reads the YAML file at path over the defaults and applies the
// environment. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MediaDir == "" {
		return fmt.Errorf("media_dir is required")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	if c.EventRetentionDays < 0 {
		return fmt.Errorf("event_retention_days must be >= 0")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// MaxFileBytes returns the max document size in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) << 20 }

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unsupported log_level %q (use debug, info, warn or error)", c.LogLevel)
}
