// Package storefront implements the public shop: catalog, carts and checkout.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/resale-hub/internal/cart"
	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/services/payments"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrItemUnavailable is returned when an item is not listed for sale.
	ErrItemUnavailable = errors.New("item is not available")
	// ErrEmptyCart is returned when checking out a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutUnavailable is returned when no payment provider is configured.
	ErrCheckoutUnavailable = errors.New("checkout is not available")
)

// UnavailableItemsError lists cart lines that can no longer be bought
type UnavailableItemsError struct {
	ItemIDs []uuid.UUID
}

func (e *UnavailableItemsError) Error() string {
	return fmt.Sprintf("%d item(s) in the cart are no longer available", len(e.ItemIDs))
}

func (e *UnavailableItemsError) Unwrap() error { return ErrItemUnavailable }

// Inventory is the subset of the inventory repository the shop reads and reserves
type Inventory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.InventoryItem, error)
	List(ctx context.Context, filter database.InventoryFilter, page, pageSize int) ([]*models.InventoryItem, int, error)
	Reserve(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	Release(ctx context.Context, ids []uuid.UUID) error
}

// ConfigStore reads the storefront configuration
type ConfigStore interface {
	Get(ctx context.Context) (*models.StorefrontConfig, error)
}

// Carts is implemented by cart.Store
type Carts interface {
	Create(ctx context.Context) (*models.Cart, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Save(ctx context.Context, c *models.Cart) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Checkout creates hosted payment sessions
type Checkout interface {
	Enabled() bool
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error)
}

// Product is the public view of a listed item. Cost and sourcing fields are not exposed.
type Product struct {
	ID          uuid.UUID            `json:"id"`
	Title       string               `json:"title"`
	Brand       string               `json:"brand,omitempty"`
	Category    string               `json:"category,omitempty"`
	Size        string               `json:"size,omitempty"`
	Condition   models.ItemCondition `json:"condition"`
	Description string               `json:"description,omitempty"`
	ImageURLs   []string             `json:"image_urls"`
	Price       string               `json:"price"`
}

// ProductFromItem converts an inventory item into its public view.
func ProductFromItem(item *models.InventoryItem) Product {
	images := item.ImageURLs
	if images == nil {
		images = []string{}
	}
	return Product{
		ID:          item.ID,
		Title:       item.Title,
		Brand:       item.Brand,
		Category:    item.Category,
		Size:        item.Size,
		Condition:   item.Condition,
		Description: item.Description,
		ImageURLs:   images,
		Price:       item.ListPrice.StringFixed(2),
	}
}

// CartView is a cart with computed totals
type CartView struct {
	*models.Cart
	Currency string `json:"currency"`
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Total    string `json:"total"`
}

// CheckoutResult is returned to the shopper to redirect to the payment page
type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Total     string `json:"total"`
	Currency  string `json:"currency"`
}

// Service wires inventory, carts and payments together
type Service struct {
	items      Inventory
	config     ConfigStore
	carts      Carts
	payments   Checkout
	successURL string
	cancelURL  string
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates the storefront service
func NewService(items Inventory, config ConfigStore, carts Carts, pay Checkout, successURL, cancelURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		items:      items,
		config:     config,
		carts:      carts,
		payments:   pay,
		successURL: successURL,
		cancelURL:  cancelURL,
		logger:     logger,
		now:        time.Now,
	}
}

// Catalog lists listed items, newest first.
func (s *Service) Catalog(ctx context.Context, query, category string, page, pageSize int) ([]Product, int, error) {
	listed := models.ItemStatusListed
	items, total, err := s.items.List(ctx, database.InventoryFilter{Status: &listed, Category: category, Query: query}, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	products := make([]Product, 0, len(items))
	for _, it := range items {
		products = append(products, ProductFromItem(it))
	}
	return products, total, nil
}

// Product returns one listed item. Anything not listed looks missing to shoppers.
func (s *Service) Product(ctx context.Context, id uuid.UUID) (*Product, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.IsPurchasable() {
		return nil, database.ErrNotFound
	}
	p := ProductFromItem(item)
	return &p, nil
}

// CreateCart starts an empty cart.
func (s *Service) CreateCart(ctx context.Context) (*CartView, error) {
	c, err := s.carts.Create(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// Cart returns a cart with totals.
func (s *Service) Cart(ctx context.Context, id uuid.UUID) (*CartView, error) {
	c, err := s.carts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// AddItem puts a listed item in the cart. Adding it twice is a no-op apart from refreshing the price.
func (s *Service) AddItem(ctx context.Context, cartID, itemID uuid.UUID) (*CartView, error) {
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, itemID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrItemUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !item.IsPurchasable() {
		return nil, ErrItemUnavailable
	}

	line := models.CartItem{ItemID: item.ID, Title: item.Title, Price: item.ListPrice, AddedAt: s.now().UTC()}
	if len(item.ImageURLs) > 0 {
		line.ImageURL = item.ImageURLs[0]
	}
	c.Put(line)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// RemoveItem drops an item from the cart. Removing an absent item is not an error.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*CartView, error) {
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.Remove(itemID) {
		if err := s.carts.Save(ctx, c); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, c)
}

// Checkout revalidates the cart, reserves the items and opens a payment session.
// Items that stopped being listed, or were reserved by a concurrent checkout,
// are dropped from the cart and reported. No session is opened in that case.
func (s *Service) Checkout(ctx context.Context, cartID uuid.UUID) (*CheckoutResult, error) {
	if s.payments == nil || !s.payments.Enabled() {
		return nil, ErrCheckoutUnavailable
	}
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, line := range c.Items {
		ids = append(ids, line.ItemID)
	}
	current, err := s.items.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.InventoryItem, len(current))
	for _, it := range current {
		byID[it.ID] = it
	}

	var gone []uuid.UUID
	for _, id := range ids {
		if it, ok := byID[id]; !ok || !it.IsPurchasable() {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		return nil, s.pruneUnavailable(ctx, c, gone)
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]payments.LineItem, 0, len(ids))
	for _, id := range ids {
		it := byID[id]
		line := payments.LineItem{Name: it.Title, Amount: it.ListPrice}
		if len(it.ImageURLs) > 0 {
			line.ImageURL = it.ImageURLs[0]
		}
		lines = append(lines, line)
		c.Put(models.CartItem{ItemID: it.ID, Title: it.Title, Price: it.ListPrice, ImageURL: line.ImageURL, AddedAt: s.now().UTC()})
	}
	subtotal := c.Subtotal()
	shipping := cfg.ShippingFor(subtotal)

	missing, err := s.items.Reserve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve items: %w", err)
	}
	if len(missing) > 0 {
		s.logger.Warn("checkout_reservation_conflict",
			zap.String("cart_id", cartID.String()),
			zap.Int("items", len(ids)),
			zap.Int("unavailable", len(missing)),
		)
		return nil, s.pruneUnavailable(ctx, c, missing)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		Currency:          cfg.Currency,
		Items:             lines,
		Shipping:          shipping,
		SuccessURL:        s.successURL,
		CancelURL:         s.cancelURL,
		ClientReferenceID: cartID.String(),
		Metadata:          map[string]string{"cart_id": cartID.String()},
	})
	if err != nil {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := s.items.Release(releaseCtx, ids); relErr != nil {
			s.logger.Error("checkout_release_failed", zap.String("cart_id", cartID.String()), zap.Error(relErr))
		}
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.carts.Delete(ctx, cartID); err != nil {
		s.logger.Warn("cart_delete_failed", zap.String("cart_id", cartID.String()), zap.Error(err))
	}

	total := subtotal.Add(shipping)
	s.logger.Info("checkout_session_created",
		zap.String("cart_id", cartID.String()),
		zap.String("session_id", session.ID),
		zap.Int("items", len(ids)),
		zap.String("total", total.StringFixed(2)),
	)
	return &CheckoutResult{
		SessionID: session.ID,
		URL:       session.URL,
		Total:     total.StringFixed(2),
		Currency:  cfg.Currency,
	}, nil
}

// pruneUnavailable drops the given items from the cart and returns the error reporting them.
func (s *Service) pruneUnavailable(ctx context.Context, c *models.Cart, gone []uuid.UUID) error {
	for _, id := range gone {
		c.Remove(id)
	}
	if err := s.carts.Save(ctx, c); err != nil {
		s.logger.Warn("cart_prune_failed", zap.String("cart_id", c.ID.String()), zap.Error(err))
	}
	return &UnavailableItemsError{ItemIDs: gone}
}

func (s *Service) view(ctx context.Context, c *models.Cart) (*CartView, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	subtotal := c.Subtotal()
	shipping := cfg.ShippingFor(subtotal)
	return &CartView{
		Cart:     c,
		Currency: cfg.Currency,
		Subtotal: subtotal.StringFixed(2),
		Shipping: shipping.StringFixed(2),
		Total:    subtotal.Add(shipping).StringFixed(2),
	}, nil
}

var _ Carts = (*cart.Store)(nil)
