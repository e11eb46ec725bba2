package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.MaxOptimIterations != 500 {
		t.Errorf("expected default max_optim_iterations 500, got %d", cfg.MaxOptimIterations)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected default request timeout 30s, got %v", cfg.RequestTimeout)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	os.Setenv("MMM_LOG_LEVEL", "debug")
	defer os.Unsetenv("MMM_LOG_LEVEL")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected env override to set log level debug, got %q", cfg.LogLevel)
	}
}
