package shopify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductWriter is implemented by Client
type ProductWriter interface {
	CreateProduct(ctx context.Context, p Product) (*Product, error)
	UpdateProduct(ctx context.Context, p Product) (*Product, error)
}

// ItemStore is the inventory access the syncer needs
type ItemStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListSyncable(ctx context.Context) ([]*models.InventoryItem, error)
	SetShopifyProductID(ctx context.Context, id uuid.UUID, productID int64) error
}

// SyncOutcome says what happened to one item
type SyncOutcome string

const (
	OutcomeCreated SyncOutcome = "created"
	OutcomeUpdated SyncOutcome = "updated"
	OutcomeSkipped SyncOutcome = "skipped"
)

// Syncer pushes inventory state to Shopify
type Syncer struct {
	items  ItemStore
	client ProductWriter
	logger *zap.Logger
}

// NewSyncer creates a syncer
func NewSyncer(items ItemStore, client ProductWriter, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{items: items, client: client, logger: logger}
}

// productStatus maps item state to Shopify visibility. Only listed items are buyable.
func productStatus(s models.ItemStatus) string {
	switch s {
	case models.ItemStatusListed:
		return "active"
	case models.ItemStatusSold:
		return "archived"
	default:
		return "draft"
	}
}

// ProductFromItem builds the product payload for an item.
func ProductFromItem(item *models.InventoryItem) Product {
	p := Product{
		Title:       item.Title,
		BodyHTML:    descriptionHTML(item.Description),
		Vendor:      item.Brand,
		ProductType: item.Category,
		Status:      productStatus(item.Status),
		Tags:        strings.Join(nonEmpty(item.Brand, item.Category, item.Size, string(item.Condition)), ", "),
		Variants: []Variant{{
			Price:               item.ListPrice.StringFixed(2),
			SKU:                 item.SKU,
			Option1:             item.Size,
			InventoryManagement: "shopify",
		}},
	}
	if item.ShopifyProductID != nil {
		p.ID = *item.ShopifyProductID
	}
	for _, u := range item.ImageURLs {
		p.Images = append(p.Images, Image{Src: u})
	}
	return p
}

func descriptionHTML(desc string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(desc), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SyncItem creates or updates the product for one item. Drafts that were never
// published are skipped. A product deleted on the Shopify side is recreated.
func (s *Syncer) SyncItem(ctx context.Context, id uuid.UUID) (SyncOutcome, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load item: %w", err)
	}
	return s.syncLoaded(ctx, item)
}

func (s *Syncer) syncLoaded(ctx context.Context, item *models.InventoryItem) (SyncOutcome, error) {
	if item.Status == models.ItemStatusDraft && item.ShopifyProductID == nil {
		return OutcomeSkipped, nil
	}

	product := ProductFromItem(item)
	if product.ID != 0 {
		_, err := s.client.UpdateProduct(ctx, product)
		if err == nil {
			return OutcomeUpdated, nil
		}
		if !errors.Is(err, ErrProductNotFound) {
			return "", fmt.Errorf("update product: %w", err)
		}
		s.logger.Warn("shopify_product_missing_recreating",
			zap.String("item_id", item.ID.String()),
			zap.Int64("product_id", product.ID),
		)
		product.ID = 0
	}

	created, err := s.client.CreateProduct(ctx, product)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	if err := s.items.SetShopifyProductID(ctx, item.ID, created.ID); err != nil {
		return "", fmt.Errorf("store product id: %w", err)
	}
	return OutcomeCreated, nil
}

// SyncAll pushes every syncable item and returns counts per outcome.
// It keeps going after individual failures and returns the first error seen.
func (s *Syncer) SyncAll(ctx context.Context) (map[SyncOutcome]int, error) {
	items, err := s.items.ListSyncable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	counts := make(map[SyncOutcome]int)
	var firstErr error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		outcome, err := s.syncLoaded(ctx, item)
		if err != nil {
			counts["failed"]++
			s.logger.Error("shopify_item_sync_failed", zap.String("item_id", item.ID.String()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		counts[outcome]++
	}
	return counts, firstErr
}
