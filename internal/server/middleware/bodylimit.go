package middleware

import "net/http"

// MaxRequestBody caps inbound request bodies at n bytes. Reads past the
// limit fail, which json decoding surfaces as a request error rather than
// letting a caller stream an unbounded payload into memory.
func MaxRequestBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
