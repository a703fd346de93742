// Package config loads and hot-reloads the prodoc service
// configuration. Configuration is read at startup and treated as
// read-only by the pipeline; reloads swap the snapshot for later
// requests.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" json:"server"`
	Limits     LimitsConfig     `mapstructure:"limits" json:"limits"`
	Fields     []FieldConfig    `mapstructure:"fields" json:"fields"`
	Detectors  []string         `mapstructure:"detectors" json:"detectors"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds" json:"thresholds"`
	Scoring    ScoringConfig    `mapstructure:"scoring" json:"scoring"`
	Report     ReportConfig     `mapstructure:"report" json:"report"`
	Extractor  ExtractorConfig  `mapstructure:"extractor" json:"extractor"`
	LLM        LLMConfig        `mapstructure:"llm" json:"llm"`
	PDF        PDFConfig        `mapstructure:"pdf" json:"pdf"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port string `mapstructure:"port" json:"port"`
}

// LimitsConfig bounds per-request resources.
type LimitsConfig struct {
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`
	MaxConcurrent   int64         `mapstructure:"max_concurrent" json:"max_concurrent"`
	RequestDeadline time.Duration `mapstructure:"request_deadline" json:"request_deadline"`
}

// FieldConfig describes one target field to extract.
type FieldConfig struct {
	Name     string   `mapstructure:"name" json:"name"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
	Pattern  string   `mapstructure:"pattern" json:"pattern"`
}

// ThresholdsConfig holds the decision and surfacing thresholds.
// Approve (T1) must be below Reject (T2).
type ThresholdsConfig struct {
	Approve       int `mapstructure:"approve" json:"approve"`
	Reject        int `mapstructure:"reject" json:"reject"`
	Highlight     int `mapstructure:"highlight" json:"highlight"`
	LowConfidence int `mapstructure:"low_confidence" json:"low_confidence"`
}

// ScoringConfig holds risk aggregation weights.
type ScoringConfig struct {
	PenaltyWeight float64 `mapstructure:"penalty_weight" json:"penalty_weight"`
}

// ReportConfig holds narrative settings.
type ReportConfig struct {
	TopFindings int `mapstructure:"top_findings" json:"top_findings"`
}

// ExtractorConfig selects the extraction capability.
type ExtractorConfig struct {
	Capability string `mapstructure:"capability" json:"capability"`
}

// LLMConfig holds settings for the model-backed extractor. APIKey may
// reference an environment variable as ${VAR}.
type LLMConfig struct {
	Model      string        `mapstructure:"model" json:"model"`
	APIKey     string        `mapstructure:"api_key" json:"api_key"`
	BaseURL    string        `mapstructure:"base_url" json:"base_url"`
	RateLimit  float64       `mapstructure:"rate_limit" json:"rate_limit"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout"`
}

// PDFConfig holds PDF normalization settings.
type PDFConfig struct {
	Pdftoppm  string `mapstructure:"pdftoppm" json:"pdftoppm"`
	Pdftotext string `mapstructure:"pdftotext" json:"pdftotext"`
	DPI       int    `mapstructure:"dpi" json:"dpi"`
	MaxPages  int    `mapstructure:"max_pages" json:"max_pages"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Thresholds.Approve >= c.Thresholds.Reject {
		return fmt.Errorf("thresholds.approve (%d) must be below thresholds.reject (%d)",
			c.Thresholds.Approve, c.Thresholds.Reject)
	}
	if c.Limits.MaxConcurrent <= 0 {
		return fmt.Errorf("limits.max_concurrent must be positive")
	}
	if c.Limits.RequestDeadline <= 0 {
		return fmt.Errorf("limits.request_deadline must be positive")
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("field with empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// ResolveAPIKey returns the LLM API key with ${ENV_VAR} references
// expanded.
func (c *Config) ResolveAPIKey() string {
	return ResolveEnvVars(c.LLM.APIKey)
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the initial config.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{}

	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	m.config = cfg
	return m, nil
}

// initViper sets up viper with defaults, env overrides and the config file.
func (m *Manager) initViper(cfgFile string) error {
	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("PRODOC")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.prodoc")
	}

	// Config file is optional; defaults carry a working setup.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// load parses the current viper state into a Config.
func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration snapshot (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback invoked after each successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig enables hot-reloading. Reloads that fail validation are
// dropped, keeping the previous snapshot.
func (m *Manager) WatchConfig() {
	viper.OnConfigChange(func(fsnotify.Event) {
		cfg, err := m.load()
		if err != nil || cfg.Validate() != nil {
			return
		}

		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}
