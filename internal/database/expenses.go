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

// ExpenseRepository handles expense database operations
type ExpenseRepository struct {
	db *DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, date, category, description, vendor, amount, created_at, updated_at`

func scanExpense(s rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	if err := s.Scan(&e.ID, &e.Date, &e.Category, &e.Description, &e.Vendor, &e.Amount, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts an expense
func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO expenses (id, date, category, description, vendor, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, e.ID, e.Date, e.Category, e.Description, e.Vendor, e.Amount, now, now).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// ListBetween returns expenses dated in [from, to), oldest first.
func (r *ExpenseRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE date >= $1 AND date < $2 ORDER BY date, created_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []*models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// Update saves an expense
func (r *ExpenseRepository) Update(ctx context.Context, e *models.Expense) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE expenses
		SET date = $2, category = $3, description = $4, vendor = $5, amount = $6, updated_at = $7
		WHERE id = $1
		RETURNING updated_at
	`, e.ID, e.Date, e.Category, e.Description, e.Vendor, e.Amount, time.Now()).Scan(&e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

// Delete deletes an expense by ID
func (r *ExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, "expenses", id)
}
