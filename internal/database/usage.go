package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// UsageRepository tracks monthly per-key image counts
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// CountsForMonth returns the persisted count for each key that has a row in month.
// Keys without a row are absent from the map and count as zero.
func (r *UsageRepository) CountsForMonth(ctx context.Context, month string) (map[uuid.UUID]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT api_key_id, count FROM api_key_usage WHERE month = $1`, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage: %w", err)
	}
	return counts, nil
}

// AddUsage adds each increment to the stored count for month in one transaction.
// The upsert is additive so concurrent batches never lower a counter.
func (r *UsageRepository) AddUsage(ctx context.Context, month string, increments map[uuid.UUID]int) error {
	ids := make([]uuid.UUID, 0, len(increments))
	for id, n := range increments {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin usage transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, id := range ids {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO api_key_usage (api_key_id, month, count, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (api_key_id, month) DO UPDATE SET
				count = api_key_usage.count + EXCLUDED.count,
				updated_at = EXCLUDED.updated_at
		`, id, month, increments[id], now)
		if err != nil {
			return fmt.Errorf("failed to record usage for key %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage: %w", err)
	}
	return nil
}
