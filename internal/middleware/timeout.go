package middleware

import (
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout applies to ordinary API calls
	DefaultRequestTimeout = 30 * time.Second
	// RelayRequestTimeout covers a full 50-image background removal batch
	RelayRequestTimeout = 5 * time.Minute
)

// Timeout bounds handler run time. The request context is cancelled when it fires,
// and the client receives 503 with a JSON body.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	body := `{"success":false,"error":"timeout","message":"Request timed out"}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, body)
	}
}
