package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/ulule/limiter/v3"
)

// RatelimitConfigRepository stores per-scope rate limits.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get returns the stored rate for scope, or nil when the scope has no row.
func (r *RatelimitConfigRepository) Get(ctx context.Context, scope string) (*models.RatelimitConfig, error) {
	c := &models.RatelimitConfig{}
	err := r.db.QueryRowContext(ctx, `
		SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config WHERE config_key = $1
	`, scope).Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratelimit config: %w", err)
	}
	return c, nil
}

// List returns every stored scope.
func (r *RatelimitConfigRepository) List(ctx context.Context) ([]*models.RatelimitConfig, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT config_key, rate, created_at, updated_at FROM ratelimit_config ORDER BY config_key`)
	if err != nil {
		return nil, fmt.Errorf("list ratelimit config: %w", err)
	}
	defer rows.Close()

	var out []*models.RatelimitConfig
	for rows.Next() {
		c := &models.RatelimitConfig{}
		if err := rows.Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ratelimit config: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratelimit config: %w", err)
	}
	return out, nil
}

// Set upserts the rate for a known scope after checking it parses.
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	if _, ok := models.DefaultRates[c.ConfigKey]; !ok {
		return fmt.Errorf("unknown rate limit scope %q", c.ConfigKey)
	}
	c.Rate = strings.TrimSpace(c.Rate)
	if _, err := limiter.NewRateFromFormatted(c.Rate); err != nil {
		return fmt.Errorf("invalid rate %q: %w", c.Rate, err)
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at
	`, c.ConfigKey, c.Rate, now, now)
	if err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}
	return nil
}
