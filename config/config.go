package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// RetryConfig configures retries of idempotent backend reads.
type RetryConfig struct {
	MaxRetries      int      `yaml:"max_retries"`
	InitialInterval Duration `yaml:"initial_interval,omitempty"`
	MaxInterval     Duration `yaml:"max_interval,omitempty"`
}

// BackendConfig describes how to reach the ordering REST API.
type BackendConfig struct {
	BaseURL    string      `yaml:"base_url"`
	Timeout    Duration    `yaml:"timeout,omitempty"`
	HealthPath string      `yaml:"health_path,omitempty"`
	Retry      RetryConfig `yaml:"retry"`
}

// DispatchConfig sizes the operation worker pool.
type DispatchConfig struct {
	Workers     int      `yaml:"workers"`
	CallTimeout Duration `yaml:"call_timeout,omitempty"`
}

// PagesConfig holds paging defaults shared by list pages.
type PagesConfig struct {
	PageSize         int `yaml:"page_size"`
	MedicinePageSize int `yaml:"medicine_page_size"`
}

// SessionConfig points to the persisted login session.
type SessionConfig struct {
	File string `yaml:"file"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format"`
	Loki   LokiConfig `yaml:"loki"`
}

// InspectorConfig configures the operation inspector HTTP server.
type InspectorConfig struct {
	Listen        string `yaml:"listen"`
	MaxGoroutines int    `yaml:"max_goroutines,omitempty"`
}

// TelemetryConfig toggles Prometheus metrics.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RuleConfig overrides or extends a form validation rule.
type RuleConfig struct {
	Field      string `yaml:"field"`
	Expression string `yaml:"expression"`
	Message    string `yaml:"message"`
}

// Config is the root configuration structure.
type Config struct {
	Backend    BackendConfig           `yaml:"backend"`
	Dispatch   DispatchConfig          `yaml:"dispatch"`
	Pages      PagesConfig             `yaml:"pages"`
	Session    SessionConfig           `yaml:"session"`
	Logging    LoggingConfig           `yaml:"logging"`
	Inspector  InspectorConfig         `yaml:"inspector"`
	Telemetry  TelemetryConfig         `yaml:"telemetry"`
	Validation map[string][]RuleConfig `yaml:"validation,omitempty"`
}

// Default returns a configuration usable without a file.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8080/api/",
			Retry:   RetryConfig{MaxRetries: 2},
		},
		Logging:   LoggingConfig{Level: "info"},
		Inspector: InspectorConfig{Listen: ":18081"},
	}
}

// Load reads and decodes the configuration file from disk.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	base := strings.TrimSpace(c.Backend.BaseURL)
	if base == "" {
		return errors.New("backend.base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url: unsupported scheme %q", parsed.Scheme)
	}
	if c.Dispatch.Workers < 0 {
		return fmt.Errorf("dispatch.workers must not be negative")
	}
	if c.Pages.PageSize < 0 || c.Pages.MedicinePageSize < 0 {
		return fmt.Errorf("pages: page sizes must not be negative")
	}
	for form, rules := range c.Validation {
		for idx, rule := range rules {
			if strings.TrimSpace(rule.Field) == "" || strings.TrimSpace(rule.Expression) == "" {
				return fmt.Errorf("validation.%s[%d]: field and expression are required", form, idx)
			}
		}
	}
	return nil
}

// BackendTimeout returns the per-request timeout.
func (c *Config) BackendTimeout() time.Duration {
	if c == nil || c.Backend.Timeout.Duration <= 0 {
		return 10 * time.Second
	}
	return c.Backend.Timeout.Duration
}

// PageSize returns the list page size.
func (c *Config) PageSize() int {
	if c == nil || c.Pages.PageSize <= 0 {
		return 10
	}
	return c.Pages.PageSize
}

// MedicinePageSize returns the page size of supplier medicine listings.
func (c *Config) MedicinePageSize() int {
	if c == nil || c.Pages.MedicinePageSize <= 0 {
		return 12
	}
	return c.Pages.MedicinePageSize
}

// SessionFile returns the path of the persisted session.
func (c *Config) SessionFile() string {
	if c != nil && strings.TrimSpace(c.Session.File) != "" {
		return c.Session.File
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pharmadesk-session.json"
	}
	return filepath.Join(dir, "pharmadesk", "session.json")
}
