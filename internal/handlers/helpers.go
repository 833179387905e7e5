package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 50
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 200
)

// Page is the envelope for paginated list responses
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPage[T any](items []T, page, pageSize, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	return Page[T]{Items: items, Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage caps client-facing messages at 200 characters
func sanitizeErrorMessage(message string) string {
	if len(message) > 200 {
		return message[:200] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	respondJSONErrorDetails(w, status, errorType, message, nil)
}

// respondJSONErrorDetails is respondJSONError with a details object for the client.
func respondJSONErrorDetails(w http.ResponseWriter, status int, errorType, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if details != nil {
		response["details"] = details
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondRepoError maps a repository error onto a status code and a safe message.
func respondRepoError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "not_found", database.UserMessage(err))
	case database.IsConflict(err):
		respondJSONError(w, http.StatusConflict, "conflict", database.UserMessage(err))
	case database.IsInvalidInput(err):
		respondJSONError(w, http.StatusBadRequest, "bad_request", database.UserMessage(err))
	default:
		respondJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to "+action)
	}
}

// decodeJSON reads the body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return false
	}
	if err := validation.Struct(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

// pathID parses the {name} route variable as a UUID.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "bad_request", "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page and page_size, clamping page_size to MaxPageSize.
func pagination(r *http.Request) (page, pageSize int) {
	page = 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize = DefaultPageSize
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = min(parsed, MaxPageSize)
		}
	}
	return page, pageSize
}

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t.UTC(), nil
}
