package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// InventoryFilter narrows an inventory listing
type InventoryFilter struct {
	Status   *models.ItemStatus
	Category string
	Query    string // matched against sku, title and brand
}

// InventoryRepository handles inventory item database operations
type InventoryRepository struct {
	db *DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const inventoryColumns = `id, sku, title, brand, category, size, condition, description, image_urls,
	cost, list_price, sale_price, status, sold_at, sold_channel, shopify_product_id, created_at, updated_at`

func scanInventoryItem(s rowScanner) (*models.InventoryItem, error) {
	item := &models.InventoryItem{}
	var salePrice decimal.NullDecimal
	var soldAt sql.NullTime
	var shopifyID sql.NullInt64
	err := s.Scan(
		&item.ID,
		&item.SKU,
		&item.Title,
		&item.Brand,
		&item.Category,
		&item.Size,
		&item.Condition,
		&item.Description,
		pq.Array(&item.ImageURLs),
		&item.Cost,
		&item.ListPrice,
		&salePrice,
		&item.Status,
		&soldAt,
		&item.SoldChannel,
		&shopifyID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if salePrice.Valid {
		item.SalePrice = &salePrice.Decimal
	}
	item.SoldAt = timePtr(soldAt)
	if shopifyID.Valid {
		id := shopifyID.Int64
		item.ShopifyProductID = &id
	}
	if item.ImageURLs == nil {
		item.ImageURLs = []string{}
	}
	return item, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// Create inserts a new item
func (r *InventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.ImageURLs == nil {
		item.ImageURLs = []string{}
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO inventory_items (id, sku, title, brand, category, size, condition, description, image_urls,
			cost, list_price, sale_price, status, sold_at, sold_channel, shopify_product_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`,
		item.ID,
		item.SKU,
		item.Title,
		item.Brand,
		item.Category,
		item.Size,
		item.Condition,
		item.Description,
		pq.Array(item.ImageURLs),
		item.Cost,
		item.ListPrice,
		nullDecimal(item.SalePrice),
		item.Status,
		nullTime(item.SoldAt),
		item.SoldChannel,
		nullInt64(item.ShopifyProductID),
		now,
		now,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create inventory item: %w", err)
	}
	return nil
}

// GetByID retrieves an item by ID
func (r *InventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := scanInventoryItem(r.db.QueryRowContext(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return item, nil
}

// GetByIDs retrieves several items in one query. Missing ids are simply absent from the result.
func (r *InventoryRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ANY($1::uuid[]) ORDER BY created_at`, pq.Array(uuidStrings(ids)))
}

// List returns one page of items matching filter, newest first, plus the total match count.
func (r *InventoryRepository) List(ctx context.Context, filter InventoryFilter, page, pageSize int) ([]*models.InventoryItem, int, error) {
	where := " WHERE 1=1"
	var args []any
	argIndex := 1

	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(*filter.Status))
		argIndex++
	}
	if filter.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, filter.Category)
		argIndex++
	}
	if filter.Query != "" {
		where += fmt.Sprintf(" AND (sku ILIKE $%d OR title ILIKE $%d OR brand ILIKE $%d)", argIndex, argIndex, argIndex)
		args = append(args, "%"+filter.Query+"%")
		argIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory items: %w", err)
	}

	query := `SELECT ` + inventoryColumns + ` FROM inventory_items` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, pageSize, offset(page, pageSize))

	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SoldBetween returns items sold in [from, to).
func (r *InventoryRepository) SoldBetween(ctx context.Context, from, to time.Time) ([]*models.InventoryItem, error) {
	return r.query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items
		WHERE status = 'sold' AND sold_at >= $1 AND sold_at < $2 ORDER BY sold_at`, from, to)
}

// ListSyncable returns every item that should exist in the external catalog.
func (r *InventoryRepository) ListSyncable(ctx context.Context) ([]*models.InventoryItem, error) {
	return r.query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items
		WHERE status <> 'draft' OR shopify_product_id IS NOT NULL ORDER BY created_at`)
}

func (r *InventoryRepository) query(ctx context.Context, query string, args ...any) ([]*models.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory items: %w", err)
	}
	defer rows.Close()

	items := []*models.InventoryItem{}
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory items: %w", err)
	}
	return items, nil
}

// Update saves every editable column of item
func (r *InventoryRepository) Update(ctx context.Context, item *models.InventoryItem) error {
	if item.ImageURLs == nil {
		item.ImageURLs = []string{}
	}
	err := r.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET sku = $2, title = $3, brand = $4, category = $5, size = $6, condition = $7, description = $8,
			image_urls = $9, cost = $10, list_price = $11, sale_price = $12, status = $13, sold_at = $14,
			sold_channel = $15, shopify_product_id = $16, updated_at = $17
		WHERE id = $1
		RETURNING updated_at
	`,
		item.ID,
		item.SKU,
		item.Title,
		item.Brand,
		item.Category,
		item.Size,
		item.Condition,
		item.Description,
		pq.Array(item.ImageURLs),
		item.Cost,
		item.ListPrice,
		nullDecimal(item.SalePrice),
		item.Status,
		nullTime(item.SoldAt),
		item.SoldChannel,
		nullInt64(item.ShopifyProductID),
		time.Now(),
	).Scan(&item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}
	return nil
}

// MarkSold records a sale in a single update and returns the stored item.
func (r *InventoryRepository) MarkSold(ctx context.Context, id uuid.UUID, price decimal.Decimal, channel string, at time.Time) (*models.InventoryItem, error) {
	item, err := scanInventoryItem(r.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET status = 'sold', sale_price = $2, sold_at = $3, sold_channel = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+inventoryColumns, id, price, at, channel, time.Now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark item sold: %w", err)
	}
	return item, nil
}

// Reserve moves listed items to reserved, all or nothing. When any item is no
// longer listed nothing changes and the missing ids are returned.
func (r *InventoryRepository) Reserve(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin reservation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		UPDATE inventory_items SET status = 'reserved', updated_at = $2
		WHERE id = ANY($1::uuid[]) AND status = 'listed'
		RETURNING id
	`, pq.Array(uuidStrings(ids)), time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to reserve items: %w", err)
	}
	reserved := make(map[uuid.UUID]bool, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan reserved item: %w", err)
		}
		reserved[id] = true
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to read reserved items: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reserved items: %w", err)
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if !reserved[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return missing, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil, nil
}

// Release puts reserved items back on sale.
func (r *InventoryRepository) Release(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE inventory_items SET status = 'listed', updated_at = $2
		WHERE id = ANY($1::uuid[]) AND status = 'reserved'
	`, pq.Array(uuidStrings(ids)), time.Now())
	if err != nil {
		return fmt.Errorf("failed to release items: %w", err)
	}
	return nil
}

// SetShopifyProductID stores the product id returned by the storefront platform.
func (r *InventoryRepository) SetShopifyProductID(ctx context.Context, id uuid.UUID, productID int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE inventory_items SET shopify_product_id = $2, updated_at = $3 WHERE id = $1`, id, productID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set shopify product id: %w", err)
	}
	return requireOneRow(result)
}

// SetDescription replaces the item description.
func (r *InventoryRepository) SetDescription(ctx context.Context, id uuid.UUID, description string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE inventory_items SET description = $2, updated_at = $3 WHERE id = $1`, id, description, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set description: %w", err)
	}
	return requireOneRow(result)
}

// Delete deletes an item by ID
func (r *InventoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, "inventory_items", id)
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
