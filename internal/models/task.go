package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the column a task sits in on the board
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskPriority represents how urgent a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task represents an item on the scheduling/task board
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Notes       string       `json:"notes,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// IsOverdue reports whether an unfinished task is past its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != TaskStatusDone && t.DueDate != nil && now.After(*t.DueDate)
}
