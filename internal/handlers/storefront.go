package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/resale-hub/internal/cart"
	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/services/payments"
	"github.com/benvon/resale-hub/internal/services/storefront"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Shop is implemented by storefront.Service
type Shop interface {
	Catalog(ctx context.Context, query, category string, page, pageSize int) ([]storefront.Product, int, error)
	Product(ctx context.Context, id uuid.UUID) (*storefront.Product, error)
	CreateCart(ctx context.Context) (*storefront.CartView, error)
	Cart(ctx context.Context, id uuid.UUID) (*storefront.CartView, error)
	AddItem(ctx context.Context, cartID, itemID uuid.UUID) (*storefront.CartView, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*storefront.CartView, error)
	Checkout(ctx context.Context, cartID uuid.UUID) (*storefront.CheckoutResult, error)
}

// ShopHandler serves the public storefront
type ShopHandler struct {
	shop   Shop
	config database.StorefrontConfigRepositoryInterface
	logger *zap.Logger
}

// NewShopHandler creates the public storefront handler
func NewShopHandler(shop Shop, config database.StorefrontConfigRepositoryInterface, logger *zap.Logger) *ShopHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopHandler{shop: shop, config: config, logger: logger}
}

// RegisterRoutes registers public routes; the router should carry the /shop prefix
func (h *ShopHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/products", h.ListProducts).Methods("GET")
	r.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	r.HandleFunc("/config", h.GetConfig).Methods("GET")
	r.HandleFunc("/cart", h.CreateCart).Methods("POST")
	r.HandleFunc("/cart/{id}", h.GetCart).Methods("GET")
	r.HandleFunc("/cart/{id}/items/{item_id}", h.AddCartItem).Methods("PUT")
	r.HandleFunc("/cart/{id}/items/{item_id}", h.RemoveCartItem).Methods("DELETE")
	r.HandleFunc("/cart/{id}/checkout", h.Checkout).Methods("POST")
}

// RegisterAdminRoutes registers the operator config routes; the router should carry the /storefront prefix
func (h *ShopHandler) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/config", h.GetConfig).Methods("GET")
	r.HandleFunc("/config", h.UpdateConfig).Methods("PUT")
}

// ListProducts lists listed items with ?q=, ?category= and pagination
func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()
	products, total, err := h.shop.Catalog(r.Context(), strings.TrimSpace(q.Get("q")), strings.TrimSpace(q.Get("category")), page, pageSize)
	if err != nil {
		h.respondShopError(w, err, "list products")
		return
	}
	respondJSON(w, http.StatusOK, newPage(products, page, pageSize, total))
}

// GetProduct returns one listed item
func (h *ShopHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.shop.Product(r.Context(), id)
	if err != nil {
		h.respondShopError(w, err, "load product")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GetConfig returns the storefront configuration
func (h *ShopHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.Get(r.Context())
	if err != nil {
		respondRepoError(w, err, "load storefront config")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// StorefrontConfigRequest replaces the storefront configuration
type StorefrontConfigRequest struct {
	ShopName         string          `json:"shop_name" validate:"required,max=100"`
	Currency         string          `json:"currency" validate:"required,len=3,alpha"`
	ShippingFlat     decimal.Decimal `json:"shipping_flat" validate:"gte=0"`
	FreeShippingOver decimal.Decimal `json:"free_shipping_over" validate:"gte=0"`
	Announcement     string          `json:"announcement,omitempty" validate:"max=500"`
}

// UpdateConfig replaces the storefront configuration
func (h *ShopHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req StorefrontConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg := &models.StorefrontConfig{
		ShopName:         validation.SanitizeText(req.ShopName),
		Currency:         strings.ToLower(req.Currency),
		ShippingFlat:     req.ShippingFlat.Round(2),
		FreeShippingOver: req.FreeShippingOver.Round(2),
		Announcement:     validation.SanitizeText(req.Announcement),
	}
	if err := h.config.Set(r.Context(), cfg); err != nil {
		respondRepoError(w, err, "save storefront config")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// CreateCart starts an empty cart
func (h *ShopHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.shop.CreateCart(r.Context())
	if err != nil {
		h.respondShopError(w, err, "create cart")
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// GetCart returns a cart with totals
func (h *ShopHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.shop.Cart(r.Context(), id)
	if err != nil {
		h.respondShopError(w, err, "load cart")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// AddCartItem puts an item in the cart
func (h *ShopHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	view, err := h.shop.AddItem(r.Context(), cartID, itemID)
	if err != nil {
		h.respondShopError(w, err, "add item to cart")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// RemoveCartItem drops an item from the cart
func (h *ShopHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	view, err := h.shop.RemoveItem(r.Context(), cartID, itemID)
	if err != nil {
		h.respondShopError(w, err, "remove item from cart")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Checkout opens a payment session for the cart
func (h *ShopHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.shop.Checkout(r.Context(), cartID)
	if err != nil {
		h.respondShopError(w, err, "start checkout")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ShopHandler) respondShopError(w http.ResponseWriter, err error, action string) {
	var unavailable *storefront.UnavailableItemsError
	var payErr *payments.Error
	switch {
	case errors.As(err, &unavailable):
		respondJSONErrorDetails(w, http.StatusConflict, "item_unavailable", unavailable.Error(),
			map[string]any{"item_ids": unavailable.ItemIDs})
	case errors.Is(err, cart.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "not_found", "Cart not found or expired")
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "not_found", "Product not found")
	case errors.Is(err, storefront.ErrItemUnavailable):
		respondJSONError(w, http.StatusConflict, "item_unavailable", "Item is not available")
	case errors.Is(err, storefront.ErrEmptyCart):
		respondJSONError(w, http.StatusBadRequest, "empty_cart", "Cart is empty")
	case errors.Is(err, storefront.ErrCheckoutUnavailable):
		respondJSONError(w, http.StatusServiceUnavailable, "checkout_unavailable", "Checkout is not available")
	case errors.As(err, &payErr):
		h.logger.Error("checkout_provider_error", zap.Int("status", payErr.StatusCode), zap.String("type", payErr.Type))
		respondJSONError(w, http.StatusBadGateway, "payment_provider_error", "The payment provider rejected the checkout")
	default:
		h.logger.Error("storefront_request_failed", zap.String("action", action), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to "+action)
	}
}
