package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig mirrors the searchproxy.yaml configuration file. It exists so
// the CLI can generate and round-trip config files; the runtime reads the
// same file through viper.
type YAMLConfig struct {
	Server    ServerYAML    `yaml:"server"`
	Database  DatabaseYAML  `yaml:"database"`
	OAuth     OAuthYAML     `yaml:"oauth"`
	Upstream  UpstreamYAML  `yaml:"upstream"`
	Auth      AuthYAML      `yaml:"auth"`
	Limits    LimitsYAML    `yaml:"limits"`
	Telemetry TelemetryYAML `yaml:"telemetry"`
}

type ServerYAML struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
	Env     string `yaml:"env"`
}

type DatabaseYAML struct {
	URL string `yaml:"url"`
}

type OAuthYAML struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type UpstreamYAML struct {
	BaseURL      string `yaml:"base_url"`
	SearchToken  string `yaml:"search_token"`
	SuggestToken string `yaml:"suggest_token"`
}

type AuthYAML struct {
	EnforceIDV bool `yaml:"enforce_idv"`
}

type LimitsYAML struct {
	ProxyRequests int    `yaml:"proxy_requests"`
	ProxyWindow   string `yaml:"proxy_window"`
	LoginRequests int    `yaml:"login_requests"`
	LoginWindow   string `yaml:"login_window"`
}

type TelemetryYAML struct {
	Enabled bool `yaml:"enabled"`
}

// LoadYAMLConfig parses a searchproxy.yaml file.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// DefaultYAMLConfig returns the configuration written by `searchproxy config
// init`. Secrets are left empty; they belong in SEARCHPROXY_* env vars.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerYAML{
			Host:    "0.0.0.0",
			Port:    3000,
			BaseURL: "http://localhost:3000",
			Env:     EnvDevelopment,
		},
		Database: DatabaseYAML{URL: "searchproxy.db"},
		Upstream: UpstreamYAML{BaseURL: "https://api.search.brave.com/res/v1"},
		Limits: LimitsYAML{
			ProxyRequests: 200,
			ProxyWindow:   "30m",
			LoginRequests: 30,
			LoginWindow:   "10m",
		},
		Telemetry: TelemetryYAML{Enabled: true},
	}
}

// WriteDefaultConfig writes the default configuration to path.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultYAMLConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
