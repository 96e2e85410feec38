package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/hackclub/searchproxy/internal/apperr"
)

type contextKeyIP string

// ClientIPKey is the context key for the resolved client IP.
const ClientIPKey contextKeyIP = "client_ip"

// ClientIP resolves the caller's address from the CF-Connecting-IP header
// set by the edge. Outside development the header is mandatory: a request
// without it is rejected rather than attributed to a shared proxy address,
// which would let callers pool rate-limit buckets. In development the
// connection's remote address is used as a fallback.
func ClientIP(development bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get("CF-Connecting-IP")
			if ip == "" {
				if !development {
					apperr.Write(w, apperr.New(apperr.BadRequest, "Unable to determine client IP"))
					return
				}
				ip = remoteHost(r)
			}
			ctx := context.WithValue(r.Context(), ClientIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP extracts the resolved client IP from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ClientIPKey).(string); ok {
		return ip
	}
	return ""
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "127.0.0.1"
	}
	return host
}
