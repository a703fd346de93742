package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Fields) != 6 {
		t.Errorf("got %d default fields, want 6", len(cfg.Fields))
	}
	if len(cfg.Detectors) != 4 {
		t.Errorf("got %d default detectors, want 4", len(cfg.Detectors))
	}
	if cfg.Thresholds.Approve != 30 || cfg.Thresholds.Reject != 70 {
		t.Errorf("thresholds = %d/%d, want 30/70", cfg.Thresholds.Approve, cfg.Thresholds.Reject)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"approve at reject",
			func(c *Config) { c.Thresholds.Approve = 70 },
			"must be below",
		},
		{
			"zero concurrency",
			func(c *Config) { c.Limits.MaxConcurrent = 0 },
			"max_concurrent",
		},
		{
			"zero deadline",
			func(c *Config) { c.Limits.RequestDeadline = 0 },
			"request_deadline",
		},
		{
			"empty field name",
			func(c *Config) { c.Fields = append(c.Fields, FieldConfig{}) },
			"empty name",
		},
		{
			"duplicate field",
			func(c *Config) { c.Fields = append(c.Fields, FieldConfig{Name: "Date"}) },
			"duplicate field",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() returned nil error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("PRODOC_TEST_SECRET", "sk-12345")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"literal", "literal"},
		{"${PRODOC_TEST_SECRET}", "sk-12345"},
		{"prefix-${PRODOC_TEST_SECRET}", "prefix-sk-12345"},
		{"${PRODOC_TEST_UNSET}", ""},
	}
	for _, tt := range tests {
		if got := ResolveEnvVars(tt.in); got != tt.want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("PRODOC_TEST_KEY", "sk-xyz")
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "${PRODOC_TEST_KEY}"
	if got := cfg.ResolveAPIKey(); got != "sk-xyz" {
		t.Errorf("ResolveAPIKey() = %q, want sk-xyz", got)
	}
}

func TestManagerLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9090"
limits:
  request_deadline: 45s
thresholds:
  approve: 25
  reject: 80
detectors:
  - contrast-check
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Limits.RequestDeadline != 45*time.Second {
		t.Errorf("deadline = %v, want 45s", cfg.Limits.RequestDeadline)
	}
	if cfg.Thresholds.Approve != 25 || cfg.Thresholds.Reject != 80 {
		t.Errorf("thresholds = %d/%d, want 25/80", cfg.Thresholds.Approve, cfg.Thresholds.Reject)
	}
	if len(cfg.Detectors) != 1 {
		t.Errorf("detectors = %v, want the single configured one", cfg.Detectors)
	}

	// values the file doesn't mention keep their defaults
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want default", cfg.Server.Host)
	}
	if len(cfg.Fields) != 6 {
		t.Errorf("got %d fields, want default set", len(cfg.Fields))
	}
}

func TestManagerRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
thresholds:
  approve: 90
  reject: 50
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewManager(path); err == nil {
		t.Error("NewManager() with invalid thresholds returned nil error")
	}
}
