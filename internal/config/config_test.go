package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.RegistryRoot != "./registry" {
		t.Errorf("expected registry root ./registry, got %s", cfg.RegistryRoot)
	}
	if !cfg.Watch {
		t.Error("expected watch to be true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %s", cfg.LogLevel)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("registry_root: /srv/crates\nport: 9999\nlog_level: debug\nlog_file: /var/log/cratehub.log\n")
	if err := os.WriteFile(tmpFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.loadFromFile(tmpFile); err != nil {
		t.Fatalf("loadFromFile failed: %v", err)
	}

	if cfg.RegistryRoot != "/srv/crates" {
		t.Errorf("expected registry root /srv/crates, got %s", cfg.RegistryRoot)
	}
	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.LogFile != "/var/log/cratehub.log" {
		t.Errorf("expected log file path, got %s", cfg.LogFile)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.loadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte("port: 3000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.loadFromFile(tmpFile); err != nil {
		t.Fatalf("loadFromFile failed: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
	if cfg.RegistryRoot != "./registry" {
		t.Errorf("expected default registry root to survive, got %s", cfg.RegistryRoot)
	}
}
