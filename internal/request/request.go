// Package request holds per-request context values shared by middleware and handlers.
package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/benvon/resale-hub/internal/models"
)

type contextKey string

const (
	operatorContextKey  contextKey = "operator"
	requestIDContextKey contextKey = "request_id"
)

// OperatorContextKey returns the context key used for the operator. Exposed for tests that inject non-operator values.
func OperatorContextKey() contextKey { return operatorContextKey }

// ClientIP is the address used for rate limiting and audit logs: the first X-Forwarded-For
// hop, then X-Real-IP, then the connection's host without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithOperator returns a context with the authenticated operator attached.
func WithOperator(ctx context.Context, op *models.Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey, op)
}

// OperatorFromContext returns the operator from the request context, or nil if missing or wrong type.
func OperatorFromContext(r *http.Request) *models.Operator {
	op, _ := r.Context().Value(operatorContextKey).(*models.Operator)
	return op
}

// WithRequestID attaches the correlation id for the request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestID returns the correlation id, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
