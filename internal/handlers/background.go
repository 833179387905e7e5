package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/logger"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/services/bgremoval"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MaxBackgroundBatch is the largest number of images accepted in one request.
const MaxBackgroundBatch = 50

// BackgroundRemover is implemented by bgremoval.Relay
type BackgroundRemover interface {
	RemoveBackgrounds(ctx context.Context, images []string, opts bgremoval.Options) (*bgremoval.BatchResult, error)
	Usage(ctx context.Context) (*bgremoval.UsageReport, error)
}

// BackgroundHandler serves the background-removal relay and its key pool
type BackgroundHandler struct {
	relay  BackgroundRemover
	keys   database.APIKeyRepositoryInterface
	logger *zap.Logger
}

// NewBackgroundHandler creates a new background handler
func NewBackgroundHandler(relay BackgroundRemover, keys database.APIKeyRepositoryInterface, logger *zap.Logger) *BackgroundHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackgroundHandler{relay: relay, keys: keys, logger: logger}
}

// RegisterRoutes registers relay routes; the router should carry the /background prefix
func (h *BackgroundHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/remove", h.Remove).Methods("POST")
	r.HandleFunc("/usage", h.Usage).Methods("GET")
	r.HandleFunc("/keys", h.ListKeys).Methods("GET")
	r.HandleFunc("/keys", h.CreateKey).Methods("POST")
	r.HandleFunc("/keys/{id}", h.UpdateKey).Methods("PATCH")
	r.HandleFunc("/keys/{id}", h.DeleteKey).Methods("DELETE")
}

// RemoveRequest is the body of POST /background/remove
type RemoveRequest struct {
	Images  []string `json:"images" validate:"required,min=1,max=50,dive,required,http_url"`
	BgColor string   `json:"bg_color,omitempty" validate:"max=32"`
	Size    string   `json:"size,omitempty" validate:"omitempty,oneof=auto preview small regular medium hd full 4k"`
}

// Remove runs one batch through the key pool
func (h *BackgroundHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req RemoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bgColor, err := bgremoval.NormalizeBgColor(req.BgColor)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	size := req.Size
	if size == "" {
		size = "auto"
	}

	batch, err := h.relay.RemoveBackgrounds(r.Context(), req.Images, bgremoval.Options{BgColor: bgColor, Size: size})
	if errors.Is(err, bgremoval.ErrQuotaExhausted) {
		respondJSONError(w, http.StatusTooManyRequests, "quota_exhausted", "All API keys have reached their monthly limit")
		return
	}
	if err != nil {
		h.logger.Error("background_removal_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to process images")
		return
	}

	respondJSON(w, http.StatusOK, batch)
}

// Usage reports this month's per-key usage
func (h *BackgroundHandler) Usage(w http.ResponseWriter, r *http.Request) {
	report, err := h.relay.Usage(r.Context())
	if err != nil {
		h.logger.Error("background_usage_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to load usage")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// keyView is an API key as shown to operators; the secret never leaves the server
type keyView struct {
	*models.APIKey
	SecretHint string `json:"secret_hint"`
}

func newKeyView(k *models.APIKey) keyView {
	return keyView{APIKey: k, SecretHint: logger.MaskSecret(k.Secret)}
}

// ListKeys lists every key, active or not
func (h *BackgroundHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		respondRepoError(w, err, "list API keys")
		return
	}
	views := make([]keyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, newKeyView(k))
	}
	respondJSON(w, http.StatusOK, views)
}

// CreateKeyRequest adds a key to the pool
type CreateKeyRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Secret   string `json:"secret" validate:"required,max=200"`
	Priority int    `json:"priority" validate:"gte=0"`
}

// CreateKey adds a key to the pool
func (h *BackgroundHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	key := &models.APIKey{
		Name:     validation.SanitizeText(req.Name),
		Secret:   strings.TrimSpace(req.Secret),
		Priority: req.Priority,
		Active:   true,
	}
	if key.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "name cannot be empty after sanitization")
		return
	}
	if key.Secret == "" {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "secret cannot be blank")
		return
	}
	if err := h.keys.Create(r.Context(), key); err != nil {
		respondRepoError(w, err, "create API key")
		return
	}
	h.logger.Info("api_key_created", zap.String("key", key.Name), zap.Int("priority", key.Priority))
	respondJSON(w, http.StatusCreated, newKeyView(key))
}

// UpdateKeyRequest changes a key; omitted fields are left as they are
type UpdateKeyRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Secret   *string `json:"secret,omitempty" validate:"omitempty,min=1,max=200"`
	Priority *int    `json:"priority,omitempty" validate:"omitempty,gte=0"`
	Active   *bool   `json:"active,omitempty"`
}

// UpdateKey renames, re-prioritises, rotates or toggles a key
func (h *BackgroundHandler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var name, secret string
	if req.Name != nil {
		if name = validation.SanitizeText(*req.Name); name == "" {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", "name cannot be empty after sanitization")
			return
		}
	}
	if req.Secret != nil {
		if secret = strings.TrimSpace(*req.Secret); secret == "" {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", "secret cannot be blank")
			return
		}
	}

	ctx := r.Context()
	key, err := h.keys.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load API key")
		return
	}
	if req.Name != nil {
		key.Name = name
	}
	if req.Secret != nil {
		key.Secret = secret
	}
	if req.Priority != nil {
		key.Priority = *req.Priority
	}
	if req.Active != nil {
		key.Active = *req.Active
	}
	if err := h.keys.Update(ctx, key); err != nil {
		respondRepoError(w, err, "update API key")
		return
	}
	respondJSON(w, http.StatusOK, newKeyView(key))
}

// DeleteKey removes a key and its usage history
func (h *BackgroundHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.keys.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete API key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
