package middleware

import "net/http"

// DefaultMaxBodySize bounds request bodies on the auth endpoints.
const DefaultMaxBodySize = 64 * 1024

// RequestSizeLimit creates middleware that limits the maximum request
// body size to prevent memory exhaustion.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
