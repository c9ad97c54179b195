// Package config loads server configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
type Config struct {
	Port         int    `yaml:"port"`
	DatabasePath string `yaml:"database_path"`
	TemplatesDir string `yaml:"templates_dir"`
	Country      string `yaml:"country"`

	Autosave AutosaveConfig `yaml:"autosave"`
	Session  SessionConfig  `yaml:"session"`
	Remote   RemoteConfig   `yaml:"remote"`
}

// AutosaveConfig tunes the draft auto-save adapter.
type AutosaveConfig struct {
	Interval    time.Duration `yaml:"interval"`
	RevertAfter time.Duration `yaml:"revert_after"`
	Retain      int           `yaml:"retain"`
}

// SessionConfig tunes session expiry.
type SessionConfig struct {
	MaxAge      time.Duration `yaml:"max_age"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RemoteConfig points at the backend functions. An empty base URL selects
// the in-memory fake backend (development mode).
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:         8080,
		DatabasePath: "file:formwerk.db?_pragma=foreign_keys(1)",
		TemplatesDir: "templates",
		Country:      "DE",
		Autosave: AutosaveConfig{
			Interval:    30 * time.Second,
			RevertAfter: 3 * time.Second,
			Retain:      5,
		},
		Session: SessionConfig{
			MaxAge:      24 * time.Hour,
			IdleTimeout: 30 * time.Minute,
		},
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv maps environment variables over the file values.
func (c *Config) applyEnv() {
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			c.Port = v
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.DatabasePath = dsn
	}
	if dir := os.Getenv("TEMPLATES_DIR"); dir != "" {
		c.TemplatesDir = dir
	}
	if url := os.Getenv("BACKEND_URL"); url != "" {
		c.Remote.BaseURL = url
	}
	if country := os.Getenv("COUNTRY"); country != "" {
		c.Country = country
	}
}
