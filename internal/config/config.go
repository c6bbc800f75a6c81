// Package config loads the fieldops config file. Endpoint URLs and timeouts
// live here; runtime-tunable settings (sync interval, operator name) live in
// the store's settings table so the Settings view can edit them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration (~/.config/fieldops/config.yaml).
type Config struct {
	// SheetURL is the deployed sheet script endpoint. The settings table's
	// sheet_url overrides it when set, so the URL can be changed in-app.
	SheetURL string `yaml:"sheet_url"`
	// ChatProxyURL is the hosted assistant relay. Empty disables the
	// assistant; chat falls back to local replies.
	ChatProxyURL string `yaml:"chat_proxy_url"`
	// RequestTimeoutSeconds bounds every remote call (default 12).
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	// DBPath overrides the database location (default
	// ~/.config/fieldops/fieldops.db).
	DBPath string `yaml:"db_path"`
}

// DefaultPath returns ~/.config/fieldops/config.yaml.
func DefaultPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "fieldops", "config.yaml"), nil
}

// Load reads the config at path. A missing file is not an error: defaults
// apply and everything stays configurable in-app.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyDefaults()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config back (used by first-run setup).
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 12
	}
}

// RequestTimeout returns the bound applied to remote calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
