package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TaskHandler handles task board requests
type TaskHandler struct {
	tasks database.TaskRepositoryInterface
	now   func() time.Time
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskRepositoryInterface) *TaskHandler {
	return &TaskHandler{tasks: tasks, now: time.Now}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title    string `json:"title" validate:"required,max=500"`
	Notes    string `json:"notes,omitempty" validate:"max=10000"`
	Priority string `json:"priority,omitempty" validate:"omitempty,task_priority"`
	DueDate  string `json:"due_date,omitempty"`
}

// UpdateTaskRequest represents an update task request
type UpdateTaskRequest struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Status   *string `json:"status,omitempty" validate:"omitempty,task_status"`
	Priority *string `json:"priority,omitempty" validate:"omitempty,task_priority"`
	// DueDate of "" clears the due date.
	DueDate *string `json:"due_date,omitempty"`
}

// taskView adds the overdue flag
type taskView struct {
	*models.Task
	Overdue bool `json:"overdue"`
}

func (h *TaskHandler) view(t *models.Task) taskView {
	return taskView{Task: t, Overdue: t.IsOverdue(h.now())}
}

// ListTasks lists tasks with pagination, optionally filtered by status
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	var status *models.TaskStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		st := models.TaskStatus(s)
		status = &st
	}

	tasks, total, err := h.tasks.ListPaginated(r.Context(), status, page, pageSize)
	if err != nil {
		respondRepoError(w, err, "retrieve tasks")
		return
	}
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, h.view(t))
	}
	respondJSON(w, http.StatusOK, newPage(views, page, pageSize, total))
}

// CreateTask creates a new task in the todo column
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task := &models.Task{
		ID:       uuid.New(),
		Title:    validation.SanitizeText(req.Title),
		Notes:    validation.SanitizeText(req.Notes),
		Status:   models.TaskStatusTodo,
		Priority: models.TaskPriorityMedium,
	}
	if task.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "title cannot be empty after sanitization")
		return
	}
	if req.Priority != "" {
		task.Priority = models.TaskPriority(req.Priority)
	}
	if req.DueDate != "" {
		due, err := parseDate(req.DueDate)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		task.DueDate = &due
	}

	if err := h.tasks.Create(r.Context(), task); err != nil {
		respondRepoError(w, err, "create task")
		return
	}
	respondJSON(w, http.StatusCreated, h.view(task))
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "load task")
		return
	}
	respondJSON(w, http.StatusOK, h.view(task))
}

// UpdateTask updates an existing task. Moving it to done stamps completed_at;
// moving it out of done clears it.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	task, err := h.tasks.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load task")
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", "title cannot be empty after sanitization")
			return
		}
		task.Title = title
	}
	if req.Notes != nil {
		task.Notes = validation.SanitizeText(*req.Notes)
	}
	if req.Priority != nil {
		task.Priority = models.TaskPriority(*req.Priority)
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			task.DueDate = nil
		} else {
			due, err := parseDate(*req.DueDate)
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
				return
			}
			task.DueDate = &due
		}
	}
	if req.Status != nil {
		h.setStatus(task, models.TaskStatus(*req.Status))
	}

	if err := h.tasks.Update(ctx, task); err != nil {
		respondRepoError(w, err, "update task")
		return
	}
	respondJSON(w, http.StatusOK, h.view(task))
}

func (h *TaskHandler) setStatus(task *models.Task, status models.TaskStatus) {
	if status == task.Status {
		return
	}
	task.Status = status
	if status == models.TaskStatusDone {
		now := h.now().UTC()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask marks a task as done
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	task, err := h.tasks.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load task")
		return
	}

	h.setStatus(task, models.TaskStatusDone)
	if err := h.tasks.Update(ctx, task); err != nil {
		respondRepoError(w, err, "complete task")
		return
	}
	respondJSON(w, http.StatusOK, h.view(task))
}
