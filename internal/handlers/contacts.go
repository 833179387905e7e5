package handlers

import (
	"net/http"
	"strings"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ContactHandler handles address book requests
type ContactHandler struct {
	contacts database.ContactRepositoryInterface
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contacts database.ContactRepositoryInterface) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// RegisterRoutes registers contact routes; the router should carry the /contacts prefix
func (h *ContactHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.SearchContacts).Methods("GET")
	r.HandleFunc("", h.CreateContact).Methods("POST")
	r.HandleFunc("/{id}", h.GetContact).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateContact).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteContact).Methods("DELETE")
}

// ContactRequest represents a create contact request
type ContactRequest struct {
	Name  string   `json:"name" validate:"required,max=200"`
	Email string   `json:"email,omitempty" validate:"omitempty,max=254"`
	Phone string   `json:"phone,omitempty" validate:"max=50"`
	Kind  string   `json:"kind,omitempty" validate:"omitempty,contact_kind"`
	Notes string   `json:"notes,omitempty" validate:"max=5000"`
	Tags  []string `json:"tags,omitempty" validate:"max=20,dive,min=1,max=50"`
}

// UpdateContactRequest represents an update contact request
type UpdateContactRequest struct {
	Name  *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email *string  `json:"email,omitempty" validate:"omitempty,max=254"`
	Phone *string  `json:"phone,omitempty" validate:"omitempty,max=50"`
	Kind  *string  `json:"kind,omitempty" validate:"omitempty,contact_kind"`
	Notes *string  `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Tags  []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// SearchContacts lists contacts matching ?q= against name and email, optionally by ?kind=
func (h *ContactHandler) SearchContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var kind *models.ContactKind
	if k := q.Get("kind"); k != "" {
		if err := validation.ValidateContactKind(k); err != nil {
			respondJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		ck := models.ContactKind(k)
		kind = &ck
	}

	contacts, err := h.contacts.Search(r.Context(), strings.TrimSpace(q.Get("q")), kind)
	if err != nil {
		respondRepoError(w, err, "search contacts")
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

// CreateContact creates a contact. Kind defaults to other.
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := normalizeEmail(w, req.Email)
	if !ok {
		return
	}
	c := &models.Contact{
		ID:    uuid.New(),
		Name:  validation.SanitizeText(req.Name),
		Email: email,
		Phone: strings.TrimSpace(req.Phone),
		Kind:  models.ContactKindOther,
		Notes: validation.SanitizeText(req.Notes),
		Tags:  normalizeTags(req.Tags),
	}
	if c.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "name cannot be empty after sanitization")
		return
	}
	if req.Kind != "" {
		c.Kind = models.ContactKind(req.Kind)
	}
	if err := h.contacts.Create(r.Context(), c); err != nil {
		respondRepoError(w, err, "create contact")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// GetContact retrieves a contact by ID
func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.contacts.GetByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "load contact")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// UpdateContact applies a partial update. An empty email clears it.
func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var name, email string
	if req.Name != nil {
		if name = validation.SanitizeText(*req.Name); name == "" {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", "name cannot be empty after sanitization")
			return
		}
	}
	if req.Email != nil {
		if email, ok = normalizeEmail(w, *req.Email); !ok {
			return
		}
	}

	ctx := r.Context()
	c, err := h.contacts.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load contact")
		return
	}
	if req.Name != nil {
		c.Name = name
	}
	if req.Email != nil {
		c.Email = email
	}
	if req.Phone != nil {
		c.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Kind != nil {
		c.Kind = models.ContactKind(*req.Kind)
	}
	if req.Notes != nil {
		c.Notes = validation.SanitizeText(*req.Notes)
	}
	if req.Tags != nil {
		c.Tags = normalizeTags(req.Tags)
	}
	if err := h.contacts.Update(ctx, c); err != nil {
		respondRepoError(w, err, "update contact")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DeleteContact deletes a contact
func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.contacts.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// normalizeEmail lowercases and trims before checking the address format.
// An empty result is allowed and clears the email.
func normalizeEmail(w http.ResponseWriter, raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", true
	}
	if err := validation.Validate.Var(email, "email"); err != nil {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "email must be a valid email address")
		return "", false
	}
	return email, true
}

// normalizeTags lowercases, trims and de-duplicates tags, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(validation.SanitizeText(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
