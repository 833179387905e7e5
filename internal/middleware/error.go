package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/resale-hub/internal/request"
	"go.uber.org/zap"
)

// ErrorResponse is the failure envelope written by middleware. Handlers use the same shape.
type ErrorResponse struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// ErrorHandler turns a panic in any handler into a 500 envelope. The stack goes to the log only.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Error("handler_panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", request.RequestID(r.Context())),
					zap.Stack("stack"),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", logger)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// respondErrorJSON writes the failure envelope. The request id, when known, is echoed in details.
func respondErrorJSON(w http.ResponseWriter, r *http.Request, status int, errorType, message string, logger *zap.Logger) {
	body := ErrorResponse{
		Error:     errorType,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if id := request.RequestID(r.Context()); id != "" {
		body.Details = map[string]any{"request_id": id}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && logger != nil {
		logger.Warn("error_envelope_encode_failed",
			zap.Error(err),
			zap.Int("status", status),
			zap.String("path", r.URL.Path),
		)
	}
}
