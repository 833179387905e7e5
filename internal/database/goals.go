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

// GoalRepository handles goal database operations
type GoalRepository struct {
	db *DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *DB) *GoalRepository {
	return &GoalRepository{db: db}
}

const goalColumns = `id, title, metric, target, current, weight, period_start, period_end, created_at, updated_at`

func scanGoal(s rowScanner) (*models.Goal, error) {
	g := &models.Goal{}
	err := s.Scan(&g.ID, &g.Title, &g.Metric, &g.Target, &g.Current, &g.Weight, &g.PeriodStart, &g.PeriodEnd, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Create inserts a goal
func (r *GoalRepository) Create(ctx context.Context, g *models.Goal) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO goals (id, title, metric, target, current, weight, period_start, period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, g.ID, g.Title, g.Metric, g.Target, g.Current, g.Weight, g.PeriodStart, g.PeriodEnd, now, now).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// GetByID retrieves a goal by ID
func (r *GoalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return g, nil
}

// List returns all goals, most recent period first
func (r *GoalRepository) List(ctx context.Context) ([]*models.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY period_end DESC, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	goals := []*models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

// Update saves a goal
func (r *GoalRepository) Update(ctx context.Context, g *models.Goal) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE goals
		SET title = $2, metric = $3, target = $4, current = $5, weight = $6, period_start = $7, period_end = $8, updated_at = $9
		WHERE id = $1
		RETURNING updated_at
	`, g.ID, g.Title, g.Metric, g.Target, g.Current, g.Weight, g.PeriodStart, g.PeriodEnd, time.Now()).Scan(&g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return nil
}

// Delete deletes a goal by ID
func (r *GoalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, "goals", id)
}
