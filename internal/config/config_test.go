package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("expected development default, got %q", cfg.Env)
	}
	if cfg.ProxyLimit != 200 || cfg.ProxyWindow != 30*time.Minute {
		t.Errorf("unexpected proxy limit defaults: %d / %s", cfg.ProxyLimit, cfg.ProxyWindow)
	}
	if cfg.LoginLimit != 30 || cfg.LoginWindow != 10*time.Minute {
		t.Errorf("unexpected login limit defaults: %d / %s", cfg.LoginLimit, cfg.LoginWindow)
	}
	if cfg.UpstreamBaseURL != "https://api.search.brave.com/res/v1" {
		t.Errorf("unexpected upstream default %q", cfg.UpstreamBaseURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SEARCHPROXY_SERVER_PORT", "8123")
	t.Setenv("SEARCHPROXY_AUTH_ENFORCE_IDV", "true")
	t.Setenv("SEARCHPROXY_LIMITS_PROXY_REQUESTS", "50")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8123 {
		t.Errorf("expected env port 8123, got %d", cfg.Port)
	}
	if !cfg.EnforceIDV {
		t.Error("expected EnforceIDV from env")
	}
	if cfg.ProxyLimit != 50 {
		t.Errorf("expected proxy limit 50, got %d", cfg.ProxyLimit)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "searchproxy.yaml")
	yaml := `server:
  port: 9100
  env: development
upstream:
  base_url: https://upstream.example.com/res/v1/
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 9100 {
		t.Errorf("expected file port 9100, got %d", cfg.Port)
	}
	// Trailing slash is trimmed so URL joins stay predictable.
	if cfg.UpstreamBaseURL != "https://upstream.example.com/res/v1" {
		t.Errorf("unexpected upstream %q", cfg.UpstreamBaseURL)
	}
}

func TestValidateProductionRequiresCredentials(t *testing.T) {
	cfg := &Config{
		Env:        EnvProduction,
		BaseURL:    "https://search.example.com",
		ProxyLimit: 200, LoginLimit: 30,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected production without credentials to fail validation")
	}

	cfg.OAuthClientID = "id"
	cfg.OAuthClientSecret = "secret"
	if err := cfg.Validate(); err == nil {
		t.Error("expected production without search token to fail validation")
	}

	cfg.SearchToken = "BSA-token"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid production config, got %v", err)
	}
}

func TestValidateRejectsUnknownEnv(t *testing.T) {
	cfg := &Config{Env: "staging", BaseURL: "http://x", ProxyLimit: 1, LoginLimit: 1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown environment to fail validation")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "searchproxy.yaml")

	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("write default config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated config should load: %v", err)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("expected development default in generated file, got %q", cfg.Env)
	}

	// The generated file round-trips through the YAML mirror too.
	yc, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("generated config should parse as YAML: %v", err)
	}
	if yc.Server.Port != 3000 {
		t.Errorf("yaml server.port = %d, want 3000", yc.Server.Port)
	}
	if yc.OAuth.ClientID != "" || yc.OAuth.ClientSecret != "" {
		t.Error("generated file must not contain credentials")
	}
	if yc.Limits.ProxyWindow != "30m" {
		t.Errorf("yaml limits.proxy_window = %q, want 30m", yc.Limits.ProxyWindow)
	}
}
