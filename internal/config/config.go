// Package config loads the gateway's configuration once at startup into an
// immutable value that is passed explicitly to every component constructor.
// Components never read environment state at call sites.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment names. Development relaxes IP attribution and cookie security.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the complete gateway configuration.
type Config struct {
	Host    string
	Port    int
	BaseURL string
	Env     string

	// DatabaseURL is a postgres:// DSN or a SQLite file path.
	DatabaseURL string

	// OAuth identity provider credentials.
	OAuthClientID     string
	OAuthClientSecret string

	// Upstream search API.
	UpstreamBaseURL string
	SearchToken     string
	SuggestToken    string

	// EnforceIDV gates proxy access on identity verification for users that
	// are neither verified nor exempt.
	EnforceIDV bool

	// Rate limit windows.
	ProxyLimit  int
	ProxyWindow time.Duration
	LoginLimit  int
	LoginWindow time.Duration

	TelemetryEnabled bool
}

// Load reads configuration from an optional YAML file and SEARCHPROXY_*
// environment variables (env wins). Call once from the CLI.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.base_url", "http://localhost:3000")
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("database.url", "searchproxy.db")
	v.SetDefault("upstream.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("auth.enforce_idv", false)
	v.SetDefault("limits.proxy_requests", 200)
	v.SetDefault("limits.proxy_window", 30*time.Minute)
	v.SetDefault("limits.login_requests", 30)
	v.SetDefault("limits.login_window", 10*time.Minute)
	v.SetDefault("telemetry.enabled", true)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("searchproxy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.searchproxy")
	}

	v.SetEnvPrefix("SEARCHPROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; env vars and defaults carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Host:              v.GetString("server.host"),
		Port:              v.GetInt("server.port"),
		BaseURL:           strings.TrimRight(v.GetString("server.base_url"), "/"),
		Env:               v.GetString("server.env"),
		DatabaseURL:       v.GetString("database.url"),
		OAuthClientID:     v.GetString("oauth.client_id"),
		OAuthClientSecret: v.GetString("oauth.client_secret"),
		UpstreamBaseURL:   strings.TrimRight(v.GetString("upstream.base_url"), "/"),
		SearchToken:       v.GetString("upstream.search_token"),
		SuggestToken:      v.GetString("upstream.suggest_token"),
		EnforceIDV:        v.GetBool("auth.enforce_idv"),
		ProxyLimit:        v.GetInt("limits.proxy_requests"),
		ProxyWindow:       v.GetDuration("limits.proxy_window"),
		LoginLimit:        v.GetInt("limits.login_requests"),
		LoginWindow:       v.GetDuration("limits.login_window"),
		TelemetryEnabled:  v.GetBool("telemetry.enabled"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot serve. Development mode only
// requires a listen address; production additionally needs the OAuth and
// upstream credentials.
func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("invalid environment %q (want %s or %s)", c.Env, EnvDevelopment, EnvProduction)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if c.ProxyLimit <= 0 || c.LoginLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	if c.Env == EnvProduction {
		if c.OAuthClientID == "" || c.OAuthClientSecret == "" {
			return fmt.Errorf("oauth.client_id and oauth.client_secret are required in production")
		}
		if c.SearchToken == "" {
			return fmt.Errorf("upstream.search_token is required in production")
		}
	}
	return nil
}

// IsDevelopment reports whether the gateway runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}
