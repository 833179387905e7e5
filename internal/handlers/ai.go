package handlers

import (
	"net/http"

	"github.com/benvon/resale-hub/internal/services/ai"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AIHandler serves the listing assistant
type AIHandler struct {
	generator ai.ListingGenerator // nil when no AI key is configured
	logger    *zap.Logger
}

// NewAIHandler creates a new AI handler
func NewAIHandler(generator ai.ListingGenerator, logger *zap.Logger) *AIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIHandler{generator: generator, logger: logger}
}

// RegisterRoutes registers AI routes; the router should carry the /ai prefix
func (h *AIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/listing", h.SuggestListing).Methods("POST")
}

// SuggestListing returns a title, description, category and tags for one photo
func (h *AIHandler) SuggestListing(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "unavailable", "The AI listing assistant is not configured")
		return
	}

	var input ai.ListingInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Notes = validation.SanitizeText(input.Notes)

	suggestion, err := h.generator.SuggestListing(r.Context(), input)
	if err != nil {
		h.logger.Warn("listing_suggestion_failed", zap.Error(err))
		status := http.StatusBadGateway
		if ai.IsRateLimitError(err) {
			status = http.StatusTooManyRequests
		}
		respondJSONError(w, status, "ai_provider_error", ai.UserMessage(err))
		return
	}
	respondJSON(w, http.StatusOK, suggestion)
}
