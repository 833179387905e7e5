package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

const (
	// DefaultMaxRequestSize is the default maximum request body size (1MB)
	DefaultMaxRequestSize int64 = 1 << 20
)

// MaxRequestSize rejects bodies over maxBytes. Handlers see a MaxBytesError when a
// body without Content-Length runs past the limit.
func MaxRequestSize(maxBytes int64, logger *zap.Logger) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondErrorJSON(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large", logger)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
