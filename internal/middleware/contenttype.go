package middleware

import (
	"mime"
	"net/http"

	"go.uber.org/zap"
)

// ContentType requires application/json on requests that carry a body.
// Bodyless POSTs (e.g. /tasks/{id}/complete) are allowed without a header.
func ContentType(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
				contentType := r.Header.Get("Content-Type")
				if contentType == "" {
					if r.ContentLength > 0 {
						respondErrorJSON(w, r, http.StatusBadRequest, "bad_request", "Content-Type header is required", logger)
						return
					}
				} else if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "application/json" {
					respondErrorJSON(w, r, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json", logger)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
