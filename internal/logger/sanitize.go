package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the maximum length for general strings in logs
	MaxGeneralStringLength = 2000
	// MaxDebugContentLength is the maximum length for debug content (prompts/responses)
	MaxDebugContentLength = 10000

	secretVisibleSuffix = 4
)

// SanitizePath sanitizes a URL path for safe logging.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString removes control characters, fixes invalid UTF-8 and truncates to maxLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = sanitizeFilterRunes(s)
	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// sanitizeFilterRunes validates UTF-8 and removes control characters (keeps printable, space, tab, newline, CR).
func sanitizeFilterRunes(s string) string {
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
	return builder.String()
}

// SanitizeError sanitizes an error message for safe logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeDebugContent sanitizes debug content (prompts/responses) for safe logging
func SanitizeDebugContent(content string) string {
	return SanitizeString(content, MaxDebugContentLength)
}

// MaskSecret hides all but the last four characters of an API key or token.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	if len(secret) <= secretVisibleSuffix {
		return strings.Repeat("*", len(secret))
	}
	return "****" + secret[len(secret)-secretVisibleSuffix:]
}
