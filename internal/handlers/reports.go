package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/benvon/resale-hub/internal/accounting"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SoldItemSource loads items sold in a window
type SoldItemSource interface {
	SoldBetween(ctx context.Context, from, to time.Time) ([]*models.InventoryItem, error)
}

// ExpenseSource loads expenses in a window
type ExpenseSource interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]*models.Expense, error)
}

// ReportHandler builds accounting reports
type ReportHandler struct {
	sold     SoldItemSource
	expenses ExpenseSource
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportHandler creates a new report handler
func NewReportHandler(sold SoldItemSource, expenses ExpenseSource, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{sold: sold, expenses: expenses, logger: logger, now: time.Now}
}

// RegisterRoutes registers report routes; the router should carry the /reports prefix
func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/statement", h.Statement).Methods("GET")
}

// Statement returns the income statement for ?from=YYYY-MM&to=YYYY-MM
func (h *ReportHandler) Statement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := accounting.ParsePeriod(q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ctx := r.Context()
	sold, err := h.sold.SoldBetween(ctx, period.From, period.End())
	if err != nil {
		respondRepoError(w, err, "load sales")
		return
	}
	expenses, err := h.expenses.ListBetween(ctx, period.From, period.End())
	if err != nil {
		respondRepoError(w, err, "load expenses")
		return
	}

	st := accounting.BuildStatement(period, sold, expenses)
	h.logger.Debug("statement_built",
		zap.String("from", st.From),
		zap.String("to", st.To),
		zap.Int("items_sold", st.Totals.ItemsSold),
		zap.Int("expenses", len(expenses)),
	)
	respondJSON(w, http.StatusOK, st)
}
