package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
)

// APIKeyRepository stores the background-removal key pool
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

const apiKeyColumns = `id, name, secret, priority, active, created_at, updated_at`

func scanAPIKey(s rowScanner) (*models.APIKey, error) {
	k := &models.APIKey{}
	if err := s.Scan(&k.ID, &k.Name, &k.Secret, &k.Priority, &k.Active, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	return k, nil
}

// Create inserts a key. A zero ID is replaced with a new UUID.
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (id, name, secret, priority, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, key.ID, key.Name, key.Secret, key.Priority, key.Active, now, now).Scan(&key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// ListActive returns active keys in allocation order: ascending priority, then creation time.
func (r *APIKeyRepository) ListActive(ctx context.Context) ([]*models.APIKey, error) {
	return r.list(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE active ORDER BY priority ASC, created_at ASC`)
}

// List returns every key, including disabled ones, in allocation order.
func (r *APIKeyRepository) List(ctx context.Context) ([]*models.APIKey, error) {
	return r.list(ctx, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY priority ASC, created_at ASC`)
}

func (r *APIKeyRepository) list(ctx context.Context, query string) ([]*models.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}
	return keys, nil
}

// GetByID retrieves a key by ID
func (r *APIKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	k, err := scanAPIKey(r.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return k, nil
}

// GetByName retrieves a key by its unique name
func (r *APIKeyRepository) GetByName(ctx context.Context, name string) (*models.APIKey, error) {
	k, err := scanAPIKey(r.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return k, nil
}

// Update saves name, secret, priority and active flag.
func (r *APIKeyRepository) Update(ctx context.Context, key *models.APIKey) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE api_keys
		SET name = $2, secret = $3, priority = $4, active = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`, key.ID, key.Name, key.Secret, key.Priority, key.Active, time.Now()).Scan(&key.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	return nil
}

// Delete removes a key; its usage rows go with it.
func (r *APIKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, "api_keys", id)
}

// deleteByID runs a single-row delete and maps zero affected rows to ErrNotFound.
// table is always a constant supplied by a repository.
func deleteByID(ctx context.Context, db *DB, table string, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
