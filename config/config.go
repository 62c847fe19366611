package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete tradelog configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Assistant AssistantConfig `json:"assistant" yaml:"assistant"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Addr         string  `json:"addr" yaml:"addr"`
	RatePerSec   float64 `json:"rate_per_sec" yaml:"rate_per_sec"`
	RateBurst    int     `json:"rate_burst" yaml:"rate_burst"`
	ReadTimeout  string  `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string  `json:"write_timeout" yaml:"write_timeout"`
	Timezone     string  `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// StoreConfig contains persistence settings.
type StoreConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// LLMConfig describes the text-completion backend.
type LLMConfig struct {
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	Model       string  `json:"model" yaml:"model"`
	APIKeyEnv   string  `json:"api_key_env" yaml:"api_key_env"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Timeout     string  `json:"timeout" yaml:"timeout"` // e.g. "30s"
}

// AssistantConfig bounds the chat context.
type AssistantConfig struct {
	Name           string `json:"name" yaml:"name"`
	RecentSessions int    `json:"recent_sessions" yaml:"recent_sessions"`
	RecentTrades   int    `json:"recent_trades" yaml:"recent_trades"`
	// QuotesURL is an optional remote quote service; empty uses the
	// built-in quotes.
	QuotesURL string `json:"quotes_url,omitempty" yaml:"quotes_url,omitempty"`
}

// LogConfig contains logging parameters.
type LogConfig struct {
	Level   string `json:"level" yaml:"level"`   // debug|info|warn|error
	Format  string `json:"format" yaml:"format"` // json|text
	Tracing bool   `json:"tracing" yaml:"tracing"`
}

// LoadFromFile loads configuration from a file (YAML, with JSON as fallback).
// Fields missing from the file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load returns Default when path is empty, otherwise LoadFromFile.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFromFile(path)
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.RatePerSec <= 0 {
		return fmt.Errorf("server.rate_per_sec must be positive")
	}
	if c.Server.RateBurst <= 0 {
		return fmt.Errorf("server.rate_burst must be positive")
	}
	for name, d := range map[string]string{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"llm.timeout":          c.LLM.Timeout,
	} {
		if _, err := parseDuration(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := c.Server.Location(); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path is required")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.Assistant.RecentSessions < 0 || c.Assistant.RecentTrades < 0 {
		return fmt.Errorf("assistant recent_sessions and recent_trades must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be 'json' or 'text'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			RatePerSec:   10,
			RateBurst:    30,
			ReadTimeout:  "15s",
			WriteTimeout: "60s",
		},
		Store: StoreConfig{
			DBPath: "./tradelog.sqlite",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "LLM_API_KEY",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     "30s",
		},
		Assistant: AssistantConfig{
			Name:           "Sydney",
			RecentSessions: 5,
			RecentTrades:   10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ReadTimeoutDuration returns the parsed server read timeout.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := parseDuration(s.ReadTimeout)
	return d
}

func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	d, _ := parseDuration(s.WriteTimeout)
	return d
}

// Location resolves Timezone; empty means UTC.
func (s ServerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

func (l LLMConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(l.Timeout)
	return d
}

// APIKey reads the backend key from the environment variable named by
// APIKeyEnv.
func (l LLMConfig) APIKey() string {
	if l.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(l.APIKeyEnv)
}

// parseDuration treats "" as no timeout.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}

// LoadEnv loads KEY=VALUE pairs from the given .env files (default
// ".env") into the process environment without overriding variables
// that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
