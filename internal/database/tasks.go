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

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, notes, status, priority, due_date, created_at, updated_at, completed_at`

func scanTask(s rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var dueDate, completedAt sql.NullTime
	err := s.Scan(
		&task.ID,
		&task.Title,
		&task.Notes,
		&task.Status,
		&task.Priority,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	task.DueDate = timePtr(dueDate)
	task.CompletedAt = timePtr(completedAt)
	return task, nil
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, title, notes, status, priority, due_date, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`,
		task.ID,
		task.Title,
		task.Notes,
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		now,
		now,
		nullTime(task.CompletedAt),
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListPaginated retrieves tasks, optionally filtered by status, with pagination.
// Open tasks are ordered by due date, undated ones last.
func (r *TaskRepository) ListPaginated(ctx context.Context, status *models.TaskStatus, page, pageSize int) ([]*models.Task, int, error) {
	where := ""
	var args []any
	argIndex := 1
	if status != nil {
		where = fmt.Sprintf(" WHERE status = $%d", argIndex)
		args = append(args, string(*status))
		argIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + where +
		fmt.Sprintf(" ORDER BY due_date ASC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, pageSize, offset(page, pageSize))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, total, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET title = $2, notes = $3, status = $4, priority = $5, due_date = $6, updated_at = $7, completed_at = $8
		WHERE id = $1
		RETURNING updated_at
	`,
		task.ID,
		task.Title,
		task.Notes,
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		time.Now(),
		nullTime(task.CompletedAt),
	).Scan(&task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, "tasks", id)
}
