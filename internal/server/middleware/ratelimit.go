package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/hackclub/searchproxy/internal/apperr"
)

// ProxyRateLimit returns an HTTP middleware enforcing the per-identity
// sliding-window quota on forwarding endpoints. Requests are keyed by the
// authenticated user ID so every key a user creates draws from one bucket;
// unauthenticated requests (which the auth middleware rejects anyway) fall
// back to the client IP. Standard X-RateLimit-* headers are set on all
// responses passing through.
func ProxyRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(identityKey),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// LoginRateLimit returns an HTTP middleware limiting authentication
// endpoints by client IP.
func LoginRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(clientIPKey),
		httprate.WithLimitHandler(limitExceeded),
	)
}

func identityKey(r *http.Request) (string, error) {
	if identity := GetIdentity(r.Context()); identity != nil {
		return identity.User.ID, nil
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) (string, error) {
	if ip := GetClientIP(r.Context()); ip != "" {
		return ip, nil
	}
	return httprate.KeyByRealIP(r)
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	apperr.Write(w, apperr.New(apperr.TooManyRequests,
		"Rate limit exceeded. Try again later."))
}
