package middleware

import (
	"net/http"

	"github.com/benvon/resale-hub/internal/request"
	"github.com/benvon/resale-hub/internal/services/ai"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID accepts a caller-supplied correlation id (up to 64 chars) or generates one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := request.WithRequestID(r.Context(), id)
		ctx = ai.WithRequestID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
