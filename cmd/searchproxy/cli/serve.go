package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hackclub/searchproxy/internal/audit"
	"github.com/hackclub/searchproxy/internal/proxy"
	"github.com/hackclub/searchproxy/internal/server"
	"github.com/hackclub/searchproxy/internal/service"
	"github.com/hackclub/searchproxy/internal/store"
	"github.com/hackclub/searchproxy/internal/telemetry"
)

const banner = `
 ___ ___ ___ ___ ___ _  _ ___ ___  _____  ____   __
/ __| __| _ \ _ \ __| || | _ \ _ \/ _ \ \/ /\ \ / /
\__ \ _||   |   / _|| __ |  _/   / (_) >  <  \ V /
|___/___|_|_\_|_\___|_||_|_| |_|_\\___/_/\_\  |_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Long:  "Start the HTTP server that authenticates and forwards search requests upstream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")

	return cmd
}

func runServe(host string, port int) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}

	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store opened", "url", cfg.DatabaseURL)

	authSvc := service.NewAuthService(st, cfg)
	oauthSvc := service.NewOAuthService(st, cfg, logger)
	forwarder := proxy.NewForwarder(cfg)
	auditor := audit.New(st, logger, audit.DefaultQueueSize)

	var tracker *telemetry.Tracker
	if cfg.TelemetryEnabled {
		tracker = telemetry.New(context.Background(), st, telemetryProps(st, auditor))
		if tracker != nil {
			telemetry.PrintNotice()
			tracker.Start()
			defer tracker.Shutdown()
		}
	}

	srv := server.New(cfg, st, authSvc, oauthSvc, forwarder, auditor, logger)

	fmt.Printf("→ searchproxy %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("→ Login:   %s/auth/login\n", cfg.BaseURL)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", cfg.Host, cfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// telemetryProps gathers anonymous instance counts for the hourly heartbeat.
func telemetryProps(st *store.Store, auditor *audit.Logger) telemetry.PropertiesFunc {
	return func() telemetry.Properties {
		ctx := context.Background()
		users, _ := st.CountUsers(ctx)
		keys, _ := st.CountAPIKeys(ctx)
		logs, _ := st.CountRequestLogs(ctx)
		return telemetry.Properties{
			Version:       versionString(),
			GoVersion:     runtime.Version(),
			OS:            runtime.GOOS,
			Arch:          runtime.GOARCH,
			Driver:        st.Driver(),
			Users:         int(users),
			APIKeys:       int(keys),
			RequestLogs:   int(logs),
			AuditDropped:  auditor.Dropped(),
			AuditFailures: auditor.Failures(),
		}
	}
}
