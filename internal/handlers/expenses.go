package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// ExpenseHandler handles expense requests
type ExpenseHandler struct {
	expenses database.ExpenseRepositoryInterface
	now      func() time.Time
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(expenses database.ExpenseRepositoryInterface) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, now: time.Now}
}

// RegisterRoutes registers expense routes; the router should carry the /expenses prefix
func (h *ExpenseHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListExpenses).Methods("GET")
	r.HandleFunc("", h.CreateExpense).Methods("POST")
	r.HandleFunc("/{id}", h.GetExpense).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateExpense).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteExpense).Methods("DELETE")
}

// ExpenseRequest is used for create; on update every field is optional
type ExpenseRequest struct {
	Date        string          `json:"date" validate:"required"`
	Category    string          `json:"category" validate:"required,max=100"`
	Description string          `json:"description,omitempty" validate:"max=1000"`
	Vendor      string          `json:"vendor,omitempty" validate:"max=200"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
}

// UpdateExpenseRequest represents an update expense request
type UpdateExpenseRequest struct {
	Date        *string          `json:"date,omitempty"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Vendor      *string          `json:"vendor,omitempty" validate:"omitempty,max=200"`
	Amount      *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

// ListExpenses lists expenses dated between from and to (YYYY-MM-DD, to inclusive).
// The default window is the last 90 days.
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	from, to := today.AddDate(0, 0, -90), today

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		to = t
	}
	if from.After(to) {
		respondJSONError(w, http.StatusBadRequest, "bad_request", "from must not be after to")
		return
	}

	expenses, err := h.expenses.ListBetween(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		respondRepoError(w, err, "list expenses")
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

// CreateExpense records an expense
func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	e := &models.Expense{
		ID:          uuid.New(),
		Date:        date,
		Category:    validation.SanitizeText(req.Category),
		Description: validation.SanitizeText(req.Description),
		Vendor:      validation.SanitizeText(req.Vendor),
		Amount:      req.Amount.Round(2),
	}
	if err := h.expenses.Create(r.Context(), e); err != nil {
		respondRepoError(w, err, "create expense")
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

// GetExpense retrieves an expense by ID
func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.expenses.GetByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "load expense")
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// UpdateExpense applies a partial update
func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	e, err := h.expenses.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load expense")
		return
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		e.Date = date
	}
	if req.Category != nil {
		e.Category = validation.SanitizeText(*req.Category)
	}
	if req.Description != nil {
		e.Description = validation.SanitizeText(*req.Description)
	}
	if req.Vendor != nil {
		e.Vendor = validation.SanitizeText(*req.Vendor)
	}
	if req.Amount != nil {
		e.Amount = req.Amount.Round(2)
	}
	if err := h.expenses.Update(ctx, e); err != nil {
		respondRepoError(w, err, "update expense")
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// DeleteExpense deletes an expense
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.expenses.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
