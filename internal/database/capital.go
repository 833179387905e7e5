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

// CapitalAccountRepository handles capital account database operations
type CapitalAccountRepository struct {
	db *DB
}

// NewCapitalAccountRepository creates a new capital account repository
func NewCapitalAccountRepository(db *DB) *CapitalAccountRepository {
	return &CapitalAccountRepository{db: db}
}

const capitalColumns = `id, name, kind, balance, notes, created_at, updated_at`

func scanCapitalAccount(s rowScanner) (*models.CapitalAccount, error) {
	a := &models.CapitalAccount{}
	if err := s.Scan(&a.ID, &a.Name, &a.Kind, &a.Balance, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts an account
func (r *CapitalAccountRepository) Create(ctx context.Context, a *models.CapitalAccount) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO capital_accounts (id, name, kind, balance, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, a.ID, a.Name, a.Kind, a.Balance, a.Notes, now, now).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create capital account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *CapitalAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CapitalAccount, error) {
	a, err := scanCapitalAccount(r.db.QueryRowContext(ctx, `SELECT `+capitalColumns+` FROM capital_accounts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capital account: %w", err)
	}
	return a, nil
}

// List returns all accounts ordered by name
func (r *CapitalAccountRepository) List(ctx context.Context) ([]*models.CapitalAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+capitalColumns+` FROM capital_accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query capital accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*models.CapitalAccount{}
	for rows.Next() {
		a, err := scanCapitalAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capital account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating capital accounts: %w", err)
	}
	return accounts, nil
}

// Update saves an account
func (r *CapitalAccountRepository) Update(ctx context.Context, a *models.CapitalAccount) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE capital_accounts
		SET name = $2, kind = $3, balance = $4, notes = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.Name, a.Kind, a.Balance, a.Notes, time.Now()).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update capital account: %w", err)
	}
	return nil
}

// Delete deletes an account by ID
func (r *CapitalAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, "capital_accounts", id)
}
