package handlers

import (
	"net/http"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// CapitalHandler handles capital account requests
type CapitalHandler struct {
	accounts database.CapitalAccountRepositoryInterface
}

// NewCapitalHandler creates a new capital account handler
func NewCapitalHandler(accounts database.CapitalAccountRepositoryInterface) *CapitalHandler {
	return &CapitalHandler{accounts: accounts}
}

// RegisterRoutes registers capital routes; the router should carry the /capital prefix
func (h *CapitalHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListAccounts).Methods("GET")
	r.HandleFunc("", h.CreateAccount).Methods("POST")
	r.HandleFunc("/{id}", h.GetAccount).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateAccount).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteAccount).Methods("DELETE")
}

// CapitalAccountRequest creates an account. Balances may be negative (cards).
type CapitalAccountRequest struct {
	Name    string          `json:"name" validate:"required,max=100"`
	Kind    string          `json:"kind" validate:"required,capital_kind"`
	Balance decimal.Decimal `json:"balance"`
	Notes   string          `json:"notes,omitempty" validate:"max=1000"`
}

// UpdateCapitalAccountRequest represents an update capital account request
type UpdateCapitalAccountRequest struct {
	Name    *string          `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Kind    *string          `json:"kind,omitempty" validate:"omitempty,capital_kind"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
	Notes   *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// capitalSummary is the list response: accounts plus their combined balance
type capitalSummary struct {
	Accounts []*models.CapitalAccount `json:"accounts"`
	Total    decimal.Decimal          `json:"total"`
}

// ListAccounts lists accounts with the total balance
func (h *CapitalHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		respondRepoError(w, err, "list capital accounts")
		return
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	if accounts == nil {
		accounts = []*models.CapitalAccount{}
	}
	respondJSON(w, http.StatusOK, capitalSummary{Accounts: accounts, Total: total.Round(2)})
}

// CreateAccount creates a capital account
func (h *CapitalHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CapitalAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a := &models.CapitalAccount{
		ID:      uuid.New(),
		Name:    validation.SanitizeText(req.Name),
		Kind:    models.CapitalAccountKind(req.Kind),
		Balance: req.Balance.Round(2),
		Notes:   validation.SanitizeText(req.Notes),
	}
	if err := h.accounts.Create(r.Context(), a); err != nil {
		respondRepoError(w, err, "create capital account")
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// GetAccount retrieves an account by ID
func (h *CapitalHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "load capital account")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// UpdateAccount applies a partial update
func (h *CapitalHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateCapitalAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	a, err := h.accounts.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load capital account")
		return
	}
	if req.Name != nil {
		a.Name = validation.SanitizeText(*req.Name)
	}
	if req.Kind != nil {
		a.Kind = models.CapitalAccountKind(*req.Kind)
	}
	if req.Balance != nil {
		a.Balance = req.Balance.Round(2)
	}
	if req.Notes != nil {
		a.Notes = validation.SanitizeText(*req.Notes)
	}
	if err := h.accounts.Update(ctx, a); err != nil {
		respondRepoError(w, err, "update capital account")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// DeleteAccount deletes an account
func (h *CapitalHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete capital account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
