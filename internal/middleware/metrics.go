package middleware

import (
	"net/http"
	"time"

	"github.com/benvon/resale-hub/internal/metrics"
	"github.com/gorilla/mux"
)

// Metrics records request latency by route template so ids do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newStatusRecorder(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.CollectHTTPRequest(route, r.Method, wrapped.statusCode, start)
	})
}
