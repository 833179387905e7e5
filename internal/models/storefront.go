package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StorefrontConfig is the singleton public shop configuration
type StorefrontConfig struct {
	ShopName         string          `json:"shop_name"`
	Currency         string          `json:"currency"`
	ShippingFlat     decimal.Decimal `json:"shipping_flat"`
	FreeShippingOver decimal.Decimal `json:"free_shipping_over"`
	Announcement     string          `json:"announcement,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DefaultStorefrontConfig is used until an operator saves one.
func DefaultStorefrontConfig() *StorefrontConfig {
	return &StorefrontConfig{
		ShopName:         "Shop",
		Currency:         "usd",
		ShippingFlat:     decimal.NewFromInt(5),
		FreeShippingOver: decimal.Zero,
	}
}

// ShippingFor returns the shipping charge for a subtotal. A zero threshold disables free shipping.
func (c *StorefrontConfig) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() {
		return decimal.Zero
	}
	if c.FreeShippingOver.IsPositive() && subtotal.GreaterThanOrEqual(c.FreeShippingOver) {
		return decimal.Zero
	}
	return c.ShippingFlat
}

// CartItem is a line in a storefront cart. Each item is unique stock, so there is no quantity.
type CartItem struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
	AddedAt  time.Time       `json:"added_at"`
}

// Cart is a shopper's cart, persisted server-side with a TTL
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Subtotal sums the item prices.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price)
	}
	return total
}

// Put adds or replaces the line for item.ItemID.
func (c *Cart) Put(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ItemID == item.ItemID {
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Remove drops the line for itemID and reports whether it was present.
func (c *Cart) Remove(itemID uuid.UUID) bool {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}
