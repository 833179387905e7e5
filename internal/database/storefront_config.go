package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/resale-hub/internal/models"
)

// StorefrontConfigRepository stores the single storefront configuration row.
type StorefrontConfigRepository struct {
	db *DB
}

// NewStorefrontConfigRepository creates a new storefront config repository.
func NewStorefrontConfigRepository(db *DB) *StorefrontConfigRepository {
	return &StorefrontConfigRepository{db: db}
}

// Get returns the stored config, or the defaults when none has been saved.
func (r *StorefrontConfigRepository) Get(ctx context.Context) (*models.StorefrontConfig, error) {
	c := &models.StorefrontConfig{}
	err := r.db.QueryRowContext(ctx, `
		SELECT shop_name, currency, shipping_flat, free_shipping_over, announcement, updated_at
		FROM storefront_config WHERE id
	`).Scan(&c.ShopName, &c.Currency, &c.ShippingFlat, &c.FreeShippingOver, &c.Announcement, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultStorefrontConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get storefront config: %w", err)
	}
	return c, nil
}

// Set upserts the storefront config.
func (r *StorefrontConfigRepository) Set(ctx context.Context, c *models.StorefrontConfig) error {
	if c.ShopName == "" {
		return fmt.Errorf("shop_name cannot be empty")
	}
	c.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO storefront_config (id, shop_name, currency, shipping_flat, free_shipping_over, announcement, updated_at)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			shop_name = EXCLUDED.shop_name,
			currency = EXCLUDED.currency,
			shipping_flat = EXCLUDED.shipping_flat,
			free_shipping_over = EXCLUDED.free_shipping_over,
			announcement = EXCLUDED.announcement,
			updated_at = EXCLUDED.updated_at
	`, c.ShopName, c.Currency, c.ShippingFlat, c.FreeShippingOver, c.Announcement, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set storefront config: %w", err)
	}
	return nil
}
