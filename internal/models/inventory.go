package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus is the lifecycle state of an inventory item
type ItemStatus string

const (
	ItemStatusDraft    ItemStatus = "draft"
	ItemStatusListed   ItemStatus = "listed"
	ItemStatusReserved ItemStatus = "reserved"
	ItemStatusSold     ItemStatus = "sold"
)

// ItemCondition grades a secondhand garment
type ItemCondition string

const (
	ConditionNewWithTags ItemCondition = "new_with_tags"
	ConditionExcellent   ItemCondition = "excellent"
	ConditionGood        ItemCondition = "good"
	ConditionFair        ItemCondition = "fair"
)

// InventoryItem is one unique piece of stock
type InventoryItem struct {
	ID               uuid.UUID        `json:"id"`
	SKU              string           `json:"sku"`
	Title            string           `json:"title"`
	Brand            string           `json:"brand,omitempty"`
	Category         string           `json:"category,omitempty"`
	Size             string           `json:"size,omitempty"`
	Condition        ItemCondition    `json:"condition"`
	Description      string           `json:"description,omitempty"`
	ImageURLs        []string         `json:"image_urls"`
	Cost             decimal.Decimal  `json:"cost"`
	ListPrice        decimal.Decimal  `json:"list_price"`
	SalePrice        *decimal.Decimal `json:"sale_price,omitempty"`
	Status           ItemStatus       `json:"status"`
	SoldAt           *time.Time       `json:"sold_at,omitempty"`
	SoldChannel      string           `json:"sold_channel,omitempty"`
	ShopifyProductID *int64           `json:"shopify_product_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Profit returns sale price minus cost for sold items, nil otherwise.
func (i *InventoryItem) Profit() *decimal.Decimal {
	if i.Status != ItemStatusSold || i.SalePrice == nil {
		return nil
	}
	p := i.SalePrice.Sub(i.Cost)
	return &p
}

// IsPurchasable reports whether the item can be put in a storefront cart.
func (i *InventoryItem) IsPurchasable() bool {
	return i.Status == ItemStatusListed
}

// MarkSold moves the item to sold with the given price and channel.
func (i *InventoryItem) MarkSold(price decimal.Decimal, channel string, at time.Time) {
	i.Status = ItemStatusSold
	i.SalePrice = &price
	i.SoldChannel = channel
	i.SoldAt = &at
}
