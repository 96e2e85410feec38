package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hackclub/searchproxy/internal/apperr"
	"github.com/hackclub/searchproxy/internal/service"
)

type contextKeyAuth string

// IdentityKey is the context key for the authenticated identity.
const IdentityKey contextKeyAuth = "identity"

// SessionCookieName is the cookie carrying the browser session token.
const SessionCookieName = "session_token"

// RequireAPIKey returns an HTTP middleware that authenticates the request
// via an Authorization: Bearer header holding a proxy API key. On success
// the resolved Identity is attached to the request context; on failure a
// JSON error is written and the chain stops.
func RequireAPIKey(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apperr.Write(w, apperr.New(apperr.Unauthorized, "Authentication failed"))
				return
			}

			identity, err := authSvc.ResolveAPIKey(r.Context(), token)
			if err != nil {
				apperr.Write(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession returns an HTTP middleware that authenticates the request
// via the session cookie. Banned users are rejected even when their session
// is otherwise valid.
func RequireSession(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				apperr.Write(w, apperr.New(apperr.Unauthorized, "Authentication required"))
				return
			}

			identity, err := authSvc.ResolveSession(r.Context(), cookie.Value)
			if err != nil {
				apperr.Write(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession resolves the session cookie when present but lets the
// request through either way. Pages that render differently for logged-in
// users use this.
func OptionalSession(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				if identity, rerr := authSvc.ResolveSession(r.Context(), cookie.Value); rerr == nil {
					r = r.WithContext(context.WithValue(r.Context(), IdentityKey, identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentity extracts the authenticated identity from the context. Returns
// nil for unauthenticated requests.
func GetIdentity(ctx context.Context) *service.Identity {
	if id, ok := ctx.Value(IdentityKey).(*service.Identity); ok {
		return id
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
