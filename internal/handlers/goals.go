package handlers

import (
	"net/http"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// GoalHandler handles goal requests
type GoalHandler struct {
	goals database.GoalRepositoryInterface
}

// NewGoalHandler creates a new goal handler
func NewGoalHandler(goals database.GoalRepositoryInterface) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// RegisterRoutes registers goal routes; the router should carry the /goals prefix
func (h *GoalHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListGoals).Methods("GET")
	r.HandleFunc("", h.CreateGoal).Methods("POST")
	r.HandleFunc("/{id}", h.GetGoal).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateGoal).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteGoal).Methods("DELETE")
}

// CreateGoalRequest represents a create goal request
type CreateGoalRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Metric      string          `json:"metric" validate:"required,goal_metric"`
	Target      decimal.Decimal `json:"target" validate:"gt=0"`
	Current     decimal.Decimal `json:"current" validate:"gte=0"`
	Weight      *int            `json:"weight,omitempty" validate:"omitempty,gte=0,lte=100"`
	PeriodStart string          `json:"period_start" validate:"required"`
	PeriodEnd   string          `json:"period_end" validate:"required"`
}

// UpdateGoalRequest represents an update goal request
type UpdateGoalRequest struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Metric      *string          `json:"metric,omitempty" validate:"omitempty,goal_metric"`
	Target      *decimal.Decimal `json:"target,omitempty" validate:"omitempty,gt=0"`
	Current     *decimal.Decimal `json:"current,omitempty" validate:"omitempty,gte=0"`
	Weight      *int             `json:"weight,omitempty" validate:"omitempty,gte=0,lte=100"`
	PeriodStart *string          `json:"period_start,omitempty"`
	PeriodEnd   *string          `json:"period_end,omitempty"`
}

// goalView adds the progress percentage
type goalView struct {
	*models.Goal
	Percent decimal.Decimal `json:"percent"`
}

// GoalsOverview is the list response
type GoalsOverview struct {
	Goals           []goalView      `json:"goals"`
	WeightedPercent decimal.Decimal `json:"weighted_percent"`
}

func newGoalView(g *models.Goal) goalView {
	return goalView{Goal: g, Percent: g.Percent()}
}

// ListGoals lists goals with each percentage and the weighted overall figure
func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.List(r.Context())
	if err != nil {
		respondRepoError(w, err, "list goals")
		return
	}
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, newGoalView(g))
	}
	respondJSON(w, http.StatusOK, GoalsOverview{Goals: views, WeightedPercent: models.WeightedPercent(goals)})
}

// CreateGoal creates a goal. Weight defaults to 1.
func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := parseDate(req.PeriodStart)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if end.Before(start) {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "period_end must not be before period_start")
		return
	}

	g := &models.Goal{
		ID:          uuid.New(),
		Title:       validation.SanitizeText(req.Title),
		Metric:      models.GoalMetric(req.Metric),
		Target:      req.Target,
		Current:     req.Current,
		Weight:      1,
		PeriodStart: start,
		PeriodEnd:   end,
	}
	if req.Weight != nil {
		g.Weight = *req.Weight
	}
	if err := h.goals.Create(r.Context(), g); err != nil {
		respondRepoError(w, err, "create goal")
		return
	}
	respondJSON(w, http.StatusCreated, newGoalView(g))
}

// GetGoal retrieves a goal by ID
func (h *GoalHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	g, err := h.goals.GetByID(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "load goal")
		return
	}
	respondJSON(w, http.StatusOK, newGoalView(g))
}

// UpdateGoal applies a partial update
func (h *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	g, err := h.goals.GetByID(ctx, id)
	if err != nil {
		respondRepoError(w, err, "load goal")
		return
	}
	if req.Title != nil {
		g.Title = validation.SanitizeText(*req.Title)
	}
	if req.Metric != nil {
		g.Metric = models.GoalMetric(*req.Metric)
	}
	if req.Target != nil {
		g.Target = *req.Target
	}
	if req.Current != nil {
		g.Current = *req.Current
	}
	if req.Weight != nil {
		g.Weight = *req.Weight
	}
	if req.PeriodStart != nil {
		t, err := parseDate(*req.PeriodStart)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		g.PeriodStart = t
	}
	if req.PeriodEnd != nil {
		t, err := parseDate(*req.PeriodEnd)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		g.PeriodEnd = t
	}
	if g.PeriodEnd.Before(g.PeriodStart) {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", "period_end must not be before period_start")
		return
	}

	if err := h.goals.Update(ctx, g); err != nil {
		respondRepoError(w, err, "update goal")
		return
	}
	respondJSON(w, http.StatusOK, newGoalView(g))
}

// DeleteGoal deletes a goal
func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.goals.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
