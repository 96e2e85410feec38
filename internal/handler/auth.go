package handler

import (
	"net/http"

	"github.com/hackclub/searchproxy/internal/config"
	"github.com/hackclub/searchproxy/internal/server/middleware"
	"github.com/hackclub/searchproxy/internal/service"
)

// AuthHandler drives the browser login flow against the Hack Club identity
// provider and manages the session cookie.
type AuthHandler struct {
	oauthSvc *service.OAuthService
	secure   bool
}

// NewAuthHandler creates a new AuthHandler. Cookies are marked Secure
// outside development.
func NewAuthHandler(oauthSvc *service.OAuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		oauthSvc: oauthSvc,
		secure:   !cfg.IsDevelopment(),
	}
}

// Login redirects the browser to the provider's authorization page.
// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.oauthSvc.AuthCodeURL(), http.StatusFound)
}

// Callback completes the authorization-code exchange. A callback without a
// code (user cancelled at the provider) goes back to the landing page; a
// successful exchange sets the session cookie and lands on the dashboard.
// GET /auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	_, session, err := h.oauthSvc.HandleCallback(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(service.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout deletes the current session and clears the cookie. Requests
// without a session cookie are a no-op redirect.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.oauthSvc.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}
