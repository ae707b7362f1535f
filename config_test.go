package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(baseURLEnvVar, "")

	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.baseURL != defaultBaseURL {
		t.Fatalf("expected default base URL, got %q", cfg.baseURL)
	}
	if cfg.requestTimeout != defaultHTTPTimeout {
		t.Fatalf("expected default timeout, got %v", cfg.requestTimeout)
	}
}

func TestResolveConfigReadsFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(baseURLEnvVar, "")

	dir := filepath.Join(home, ".config", "chatterm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := `{"baseURL":"http://file.example:9000","timeoutSeconds":5}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.baseURL != "http://file.example:9000" {
		t.Fatalf("expected file base URL, got %q", cfg.baseURL)
	}
	if cfg.requestTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.requestTimeout)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(baseURLEnvVar, "http://env.example:7000")

	dir := filepath.Join(home, ".config", "chatterm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"baseURL":"http://file.example"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.baseURL != "http://env.example:7000" {
		t.Fatalf("expected env base URL to win, got %q", cfg.baseURL)
	}
}

func TestMalformedConfigFileIsAnError(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "chatterm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := resolveConfig(); err == nil {
		t.Fatal("expected an error for a malformed config file")
	}
}
