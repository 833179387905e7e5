package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/queue"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryHandler handles inventory requests
type InventoryHandler struct {
	items  database.InventoryRepositoryInterface
	jobs   queue.Enqueuer // nil disables sync and describe jobs
	logger *zap.Logger
	now    func() time.Time
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(items database.InventoryRepositoryInterface, jobs queue.Enqueuer, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{items: items, jobs: jobs, logger: logger, now: time.Now}
}

// RegisterRoutes registers inventory routes; the router should carry the /inventory prefix
func (h *InventoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListItems).Methods("GET")
	r.HandleFunc("", h.CreateItem).Methods("POST")
	r.HandleFunc("/{id}", h.GetItem).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateItem).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteItem).Methods("DELETE")
	r.HandleFunc("/{id}/sell", h.SellItem).Methods("POST")
	r.HandleFunc("/{id}/describe", h.DescribeItem).Methods("POST")
}

// itemView adds derived fields to an item
type itemView struct {
	*models.InventoryItem
	Profit *decimal.Decimal `json:"profit,omitempty"`
}

func newItemView(item *models.InventoryItem) itemView {
	return itemView{InventoryItem: item, Profit: item.Profit()}
}

// CreateItemRequest represents a create item request
type CreateItemRequest struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Title       string          `json:"title" validate:"required,max=200"`
	Brand       string          `json:"brand,omitempty" validate:"max=100"`
	Category    string          `json:"category,omitempty" validate:"max=100"`
	Size        string          `json:"size,omitempty" validate:"max=32"`
	Condition   string          `json:"condition" validate:"required,item_condition"`
	Description string          `json:"description,omitempty" validate:"max=5000"`
	ImageURLs   []string        `json:"image_urls,omitempty" validate:"max=20,dive,http_url"`
	Cost        decimal.Decimal `json:"cost" validate:"gte=0"`
	ListPrice   decimal.Decimal `json:"list_price" validate:"gte=0"`
	Status      string          `json:"status,omitempty" validate:"omitempty,oneof=draft listed"`
}

// UpdateItemRequest represents an update item request. Sales go through /sell.
type UpdateItemRequest struct {
	SKU         *string          `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Brand       *string          `json:"brand,omitempty" validate:"omitempty,max=100"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Size        *string          `json:"size,omitempty" validate:"omitempty,max=32"`
	Condition   *string          `json:"condition,omitempty" validate:"omitempty,item_condition"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	ImageURLs   []string         `json:"image_urls,omitempty" validate:"omitempty,max=20,dive,http_url"`
	Cost        *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,gte=0"`
	ListPrice   *decimal.Decimal `json:"list_price,omitempty" validate:"omitempty,gte=0"`
	Status      *string          `json:"status,omitempty" validate:"omitempty,oneof=draft listed reserved"`
}

// SellItemRequest records a sale
type SellItemRequest struct {
	Price   decimal.Decimal `json:"price" validate:"gt=0"`
	Channel string          `json:"channel" validate:"required,max=50"`
	SoldAt  string          `json:"sold_at,omitempty"`
}

// ListItems lists items with optional status, category and q filters
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()

	filter := database.InventoryFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Query:    strings.TrimSpace(q.Get("q")),
	}
	if s := q.Get("status"); s != "" {
		if err := validation.ValidateItemStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		status := models.ItemStatus(s)
		filter.Status = &status
	}

	items, total, err := h.items.List(r.Context(), filter, page, pageSize)
	if err != nil {
		respondRepoError(w, err, "list inventory")
		return
	}
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}
	respondJSON(w, http.StatusOK, newPage(views, page, pageSize, total))
}

// CreateItem creates an item, enqueuing a storefront sync when it is created listed
func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status := models.ItemStatusDraft
	if req.Status != "" {
		status = models.ItemStatus(req.Status)
	}
	item := &models.InventoryItem{
		ID:          uuid.New(),
		SKU:         strings.TrimSpace(req.SKU),
		Title:       validation.SanitizeText(req.Title),
		Brand:       validation.SanitizeText(req.Brand),
		Category:    validation.SanitizeText(req.Category),
		Size:        validation.SanitizeText(req.Size),
		Condition:   models.ItemCondition(req.Condition),
		Description: validation.SanitizeText(req.Description),
		ImageURLs:   req.ImageURLs,
		Cost:        req.Cost,
		ListPrice:   req.ListPrice,
		Status:      status,
	}
	if item.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "title cannot be empty after sanitization")
		return
	}

	if err := h.items.Create(r.Context(), item); err != nil {
		respondRepoError(w, err, "create item")
		return
	}
	if item.Status == models.ItemStatusListed {
		h.enqueue(r.Context(), queue.JobTypeShopifySync, item.ID)
	}
	respondJSON(w, http.StatusCreated, newItemView(item))
}

// GetItem retrieves an item by ID
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "load item")
		return
	}
	respondJSON(w, http.StatusOK, newItemView(item))
}

// UpdateItem applies a partial update. Sold items are read-only.
func (h *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	item, err := h.items.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load item")
		return
	}
	if item.Status == models.ItemStatusSold {
		respondJSONError(w, http.StatusConflict, "conflict", "Sold items cannot be edited")
		return
	}

	applyItemUpdate(item, &req)
	if item.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "title cannot be empty after sanitization")
		return
	}

	if err := h.items.Update(ctx, item); err != nil {
		respondRepoError(w, err, "update item")
		return
	}
	if item.Status == models.ItemStatusListed || item.ShopifyProductID != nil {
		h.enqueue(ctx, queue.JobTypeShopifySync, item.ID)
	}
	respondJSON(w, http.StatusOK, newItemView(item))
}

func applyItemUpdate(item *models.InventoryItem, req *UpdateItemRequest) {
	if req.SKU != nil {
		item.SKU = strings.TrimSpace(*req.SKU)
	}
	if req.Title != nil {
		item.Title = validation.SanitizeText(*req.Title)
	}
	if req.Brand != nil {
		item.Brand = validation.SanitizeText(*req.Brand)
	}
	if req.Category != nil {
		item.Category = validation.SanitizeText(*req.Category)
	}
	if req.Size != nil {
		item.Size = validation.SanitizeText(*req.Size)
	}
	if req.Condition != nil {
		item.Condition = models.ItemCondition(*req.Condition)
	}
	if req.Description != nil {
		item.Description = validation.SanitizeText(*req.Description)
	}
	if req.ImageURLs != nil {
		item.ImageURLs = req.ImageURLs
	}
	if req.Cost != nil {
		item.Cost = *req.Cost
	}
	if req.ListPrice != nil {
		item.ListPrice = *req.ListPrice
	}
	if req.Status != nil {
		item.Status = models.ItemStatus(*req.Status)
	}
}

// DeleteItem deletes an item
func (h *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SellItem marks an item sold with price, channel and date in one update
func (h *InventoryHandler) SellItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req SellItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	soldAt := h.now().UTC()
	if req.SoldAt != "" {
		t, err := parseDate(req.SoldAt)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		soldAt = t
	}

	ctx := r.Context()
	current, err := h.items.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load item")
		return
	}
	if current.Status == models.ItemStatusSold {
		respondJSONError(w, http.StatusConflict, "conflict", "Item is already sold")
		return
	}

	item, err := h.items.MarkSold(ctx, id, req.Price.Round(2), validation.SanitizeText(req.Channel), soldAt)
	if err != nil {
		respondRepoError(w, err, "mark item sold")
		return
	}
	h.logger.Info("inventory_item_sold",
		zap.String("item_id", item.ID.String()),
		zap.String("channel", item.SoldChannel),
		zap.String("price", req.Price.StringFixed(2)),
	)
	if item.ShopifyProductID != nil {
		h.enqueue(ctx, queue.JobTypeShopifySync, item.ID)
	}
	respondJSON(w, http.StatusOK, newItemView(item))
}

// DescribeItem queues an AI description for the item's first photo
func (h *InventoryHandler) DescribeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if h.jobs == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "unavailable", "Background jobs are not configured")
		return
	}

	ctx := r.Context()
	item, err := h.items.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load item")
		return
	}
	if len(item.ImageURLs) == 0 {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "Item has no photos to describe")
		return
	}

	job := queue.NewItemJob(queue.JobTypeDescribeItem, item.ID)
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.logger.Error("failed_to_enqueue_describe_job", zap.String("item_id", item.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "unavailable", "Failed to queue description job")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID.String(), "status": "queued"})
}

// enqueue is best effort: the nightly resync catches anything missed here.
func (h *InventoryHandler) enqueue(ctx context.Context, jobType queue.JobType, itemID uuid.UUID) {
	if h.jobs == nil {
		return
	}
	if err := h.jobs.Enqueue(ctx, queue.NewItemJob(jobType, itemID)); err != nil {
		h.logger.Warn("failed_to_enqueue_job",
			zap.String("job_type", string(jobType)),
			zap.String("item_id", itemID.String()),
			zap.Error(err),
		)
	}
}
