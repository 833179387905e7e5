package ai

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Context key types for logging (to avoid collisions with string keys)
type contextKey string

const (
	itemIDContextKey    contextKey = "item_id"
	requestIDContextKey contextKey = "request_id"
)

// WithItemID attaches the inventory item being described to ctx for log correlation.
func WithItemID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, itemIDContextKey, id)
}

// WithRequestID attaches the HTTP request id to ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

const (
	// MaxPreviewLength is the maximum length for preview strings in logs
	MaxPreviewLength = 200
	maxDebugLength   = 10000
)

// SanitizePrompt creates a safe preview of a prompt for logging
func SanitizePrompt(prompt string, fullLog bool) string {
	if fullLog {
		return sanitizeStringForLogging(prompt, maxDebugLength)
	}
	return sanitizeStringForLogging(prompt, MaxPreviewLength)
}

// SanitizeResponse creates a safe preview of a response for logging
func SanitizeResponse(response string, fullLog bool) string {
	return SanitizePrompt(response, fullLog)
}

// sanitizeStringForLogging removes control characters, validates UTF-8, and truncates
func sanitizeStringForLogging(s string, maxLen int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	s = builder.String()

	if len(s) > maxLen {
		s = strings.ToValidUTF8(s[:maxLen], "") + "..."
	}
	return s
}

// ExtractRequestID extracts a request ID from context if available
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// ExtractItemID extracts an item ID from context if available
func ExtractItemID(ctx context.Context) string {
	if id, ok := ctx.Value(itemIDContextKey).(string); ok {
		return id
	}
	return ""
}
