package ai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError checks if an error is a temporary rate limit error
func IsRateLimitError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests && apiErr.Code != "insufficient_quota"
	}
	return false
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "insufficient_quota"
	}
	return false
}

// ExtractAPIError converts an SDK error into an APIError, or returns nil for transport errors.
func ExtractAPIError(err error) *APIError {
	var sdkErr *openai.Error
	if !errors.As(err, &sdkErr) {
		return nil
	}
	return &APIError{
		Message:    sdkErr.Message,
		Type:       sdkErr.Type,
		Code:       sdkErr.Code,
		StatusCode: sdkErr.StatusCode,
	}
}

// UserMessage is a short explanation safe to show to the operator.
func UserMessage(err error) string {
	switch {
	case IsQuotaError(err):
		return "The AI provider account has run out of credit"
	case IsRateLimitError(err):
		return "The AI provider is busy, try again in a minute"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return "The AI provider could not read that image"
	}
	return "The AI provider did not return a usable listing"
}
