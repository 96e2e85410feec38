package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hackclub/searchproxy/internal/audit"
	"github.com/hackclub/searchproxy/internal/config"
	"github.com/hackclub/searchproxy/internal/handler"
	"github.com/hackclub/searchproxy/internal/proxy"
	"github.com/hackclub/searchproxy/internal/server/middleware"
	"github.com/hackclub/searchproxy/internal/service"
	"github.com/hackclub/searchproxy/internal/store"
)

const (
	// maxBodySize caps inbound request bodies. The gateway only accepts
	// small JSON payloads; search requests carry everything in the query
	// string.
	maxBodySize = 1 << 20

	shutdownTimeout = 30 * time.Second

	// sessionSweepInterval is how often expired session rows are purged.
	sessionSweepInterval = 24 * time.Hour
)

// Server is the top-level HTTP server for the gateway. It owns the chi
// router and the background session sweeper; everything else is injected.
type Server struct {
	cfg        *config.Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	oauthSvc   *service.OAuthService
	forwarder  *proxy.Forwarder
	auditor    *audit.Logger
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg *config.Config, st *store.Store, authSvc *service.AuthService, oauthSvc *service.OAuthService, forwarder *proxy.Forwarder, auditor *audit.Logger, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     st,
		authSvc:   authSvc,
		oauthSvc:  oauthSvc,
		forwarder: forwarder,
		auditor:   auditor,
		logger:    logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.MaxRequestBody(maxBodySize))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	authHandler := handler.NewAuthHandler(s.oauthSvc, s.cfg)
	keysHandler := handler.NewKeysHandler(s.store)
	dashHandler := handler.NewDashboardHandler(s.store)
	proxyHandler := handler.NewProxyHandler(s.forwarder, s.store, s.auditor)

	// --- Browser login flow, limited by IP ---
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.ClientIP(s.cfg.IsDevelopment()))
		r.Use(middleware.LoginRateLimit(s.cfg.LoginLimit, s.cfg.LoginWindow))

		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
	})

	// --- Dashboard API, session authenticated ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireSession(s.authSvc))

		r.Get("/me", dashHandler.Me)
		r.Get("/stats", dashHandler.Stats)
		r.Get("/logs", dashHandler.Logs)

		r.Post("/keys", keysHandler.Create)
		r.Get("/keys", keysHandler.List)
		r.Delete("/keys/{keyID}", keysHandler.Revoke)
	})

	// --- Out-of-band revocation for secret scanners ---
	r.Post("/internal/revoke", keysHandler.RevokeByToken)

	// --- Proxy surface, bearer authenticated and rate limited ---
	r.Route("/res/v1", func(r chi.Router) {
		r.Use(middleware.ClientIP(s.cfg.IsDevelopment()))
		r.Use(middleware.RequireAPIKey(s.authSvc))
		r.Use(middleware.ProxyRateLimit(s.cfg.ProxyLimit, s.cfg.ProxyWindow))

		r.Get("/stats", proxyHandler.Stats)
		r.Get("/web/search", proxyHandler.Search(proxy.EndpointWeb))
		r.Get("/images/search", proxyHandler.Search(proxy.EndpointImages))
		r.Get("/videos/search", proxyHandler.Search(proxy.EndpointVideos))
		r.Get("/news/search", proxyHandler.Search(proxy.EndpointNews))
		r.Get("/suggest/search", proxyHandler.Search(proxy.EndpointSuggest))
	})

	// --- Session probe for the HTML layer ---
	r.With(middleware.OptionalSession(s.authSvc)).Get("/", dashHandler.Root)

	s.router = r
}

func (s *Server) corsOrigins() []string {
	origins := []string{s.cfg.BaseURL}
	if s.cfg.IsDevelopment() {
		origins = append(origins, "http://localhost:*")
	}
	return origins
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store answers a
// ping, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then drains in-flight requests, flushes the audit queue,
// and returns; closing the store is the caller's job.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Purge expired sessions in the background while serving.
	sweepDone := make(chan struct{})
	go s.sweepSessions(ctx, sweepDone)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "env", s.cfg.Env)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	<-sweepDone
	if err := s.auditor.Close(shutdownCtx); err != nil {
		s.logger.Warn("audit queue not fully drained", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) sweepSessions(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.store.DeleteExpiredSessions(context.Background())
			if err != nil {
				s.logger.Error("session sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Info("expired sessions purged", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
