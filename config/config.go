// Package config handles translated configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level translated configuration.
type Config struct {
	Translate TranslateConfig `yaml:"translate"`
	Hotkey    HotkeyConfig    `yaml:"hotkey"`
	Context   ContextConfig   `yaml:"context"`
	History   HistoryConfig   `yaml:"history"`
	HTTP      HTTPConfig      `yaml:"http"`
	Browser   BrowserConfig   `yaml:"browser"`
	LogLevel  string          `yaml:"log_level"` // debug | info | warn | error
}

// TranslateConfig controls the model endpoint.
type TranslateConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Model      string        `yaml:"model"`
	Prompt     string        `yaml:"prompt"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// HotkeyConfig controls gesture recognition.
type HotkeyConfig struct {
	Key          string        `yaml:"key"`
	TapThreshold time.Duration `yaml:"tap_threshold"`
}

// ContextConfig controls how much surrounding text accompanies a request.
type ContextConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}

// HistoryConfig controls the translation event log.
type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// HTTPConfig controls the local HTTP host.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
	// TokenHash is a bcrypt hash of the bearer token. Empty disables auth.
	TokenHash string `yaml:"token_hash"`
}

// BrowserConfig controls Chrome attachment for live sessions.
type BrowserConfig struct {
	Remote  string `yaml:"remote"`
	Stealth bool   `yaml:"stealth"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Translate.Endpoint == "" {
		c.Translate.Endpoint = "http://localhost:11434"
	}
	if c.Translate.Model == "" {
		c.Translate.Model = "phi4:latest"
	}
	if c.Translate.MaxRetries == 0 {
		c.Translate.MaxRetries = 3
	}
	if c.Translate.Timeout <= 0 {
		c.Translate.Timeout = 60 * time.Second
	}
	if c.Hotkey.Key == "" {
		c.Hotkey.Key = "Alt"
	}
	if c.Hotkey.TapThreshold <= 0 {
		c.Hotkey.TapThreshold = 250 * time.Millisecond
	}
	if c.Context.MaxTokens <= 0 {
		c.Context.MaxTokens = 10
	}
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = "127.0.0.1:8787"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
