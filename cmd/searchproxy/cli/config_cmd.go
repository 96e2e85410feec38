package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hackclub/searchproxy/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gateway configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default searchproxy.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")

	return cmd
}

func runConfigInit(force bool) error {
	path := "searchproxy.yaml"

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("Fill in the OAuth and upstream credentials, then run 'searchproxy serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	return cmd
}

func runConfigShow() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  server.host:            %s\n", cfg.Host)
	fmt.Printf("  server.port:            %d\n", cfg.Port)
	fmt.Printf("  server.base_url:        %s\n", cfg.BaseURL)
	fmt.Printf("  server.env:             %s\n", cfg.Env)
	fmt.Printf("  database.url:           %s\n", cfg.DatabaseURL)
	fmt.Printf("  oauth.client_id:        %s\n", cfg.OAuthClientID)
	fmt.Printf("  oauth.client_secret:    %s\n", redact(cfg.OAuthClientSecret))
	fmt.Printf("  upstream.base_url:      %s\n", cfg.UpstreamBaseURL)
	fmt.Printf("  upstream.search_token:  %s\n", redact(cfg.SearchToken))
	fmt.Printf("  upstream.suggest_token: %s\n", redact(cfg.SuggestToken))
	fmt.Printf("  auth.enforce_idv:       %t\n", cfg.EnforceIDV)
	fmt.Printf("  limits.proxy:           %d / %s\n", cfg.ProxyLimit, cfg.ProxyWindow)
	fmt.Printf("  limits.login:           %d / %s\n", cfg.LoginLimit, cfg.LoginWindow)
	fmt.Printf("  telemetry.enabled:      %t\n", cfg.TelemetryEnabled)
	return nil
}

func redact(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "********"
}
