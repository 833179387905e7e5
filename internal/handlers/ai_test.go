package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/request"
	"github.com/benvon/resale-hub/internal/services/ai"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	input ai.ListingInput
	err   error
}

func (f *fakeGenerator) SuggestListing(_ context.Context, input ai.ListingInput) (*ai.ListingSuggestion, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ListingSuggestion{Title: "Vintage Levi's 501 Jeans W32", Description: "Classic straight leg.", Category: "jeans", Tags: []string{"denim", "vintage"}}, nil
}

func TestAIHandler_SuggestListing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		generator  ai.ListingGenerator
		body       map[string]any
		wantStatus int
		wantType   string
	}{
		{"not configured", nil, map[string]any{"image_url": "https://cdn.example.com/a.jpg"}, http.StatusServiceUnavailable, "unavailable"},
		{"missing image", &fakeGenerator{}, map[string]any{"notes": "levis"}, http.StatusBadRequest, "validation_failed"},
		{"rate limited", &fakeGenerator{err: &ai.APIError{StatusCode: 429, Code: "rate_limit_exceeded"}}, map[string]any{"image_url": "https://cdn.example.com/a.jpg"}, http.StatusTooManyRequests, "ai_provider_error"},
		{"quota", &fakeGenerator{err: &ai.APIError{StatusCode: 429, Code: "insufficient_quota"}}, map[string]any{"image_url": "https://cdn.example.com/a.jpg"}, http.StatusBadGateway, "ai_provider_error"},
		{"ok", &fakeGenerator{}, map[string]any{"image_url": "https://cdn.example.com/a.jpg", "notes": " waist 32 ", "brand": "Levi's"}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := mux.NewRouter()
			NewAIHandler(tt.generator, nil).RegisterRoutes(r.PathPrefix("/api/v1/ai").Subrouter())

			w := serve(r, newTestRequest(http.MethodPost, "/api/v1/ai/listing", tt.body))
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, decodeEnvelope(t, w)["error"])
				return
			}
			var suggestion ai.ListingSuggestion
			decodeData(t, w, &suggestion)
			assert.Equal(t, "jeans", suggestion.Category)
			assert.Equal(t, "waist 32", tt.generator.(*fakeGenerator).input.Notes)
		})
	}
}

func TestMeHandler(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	MeHandler{}.RegisterRoutes(r.PathPrefix("/api/v1/me").Subrouter())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(request.WithOperator(req.Context(), &models.Operator{Sub: "op-1", Email: "owner@example.com"}))
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	var op models.Operator
	decodeData(t, w, &op)
	assert.Equal(t, "owner@example.com", op.Email)
}
