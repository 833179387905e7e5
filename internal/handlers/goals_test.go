package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoalRouter(goals fakeGoals) *mux.Router {
	r := mux.NewRouter()
	NewGoalHandler(goals).RegisterRoutes(r.PathPrefix("/api/v1/goals").Subrouter())
	return r
}

func TestGoalHandler_ListWeighted(t *testing.T) {
	t.Parallel()

	goals := fakeGoals{newMemStore[models.Goal]()}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	for _, g := range []models.Goal{
		{Title: "Revenue", Metric: models.GoalMetricRevenue, Target: decimal.NewFromInt(1000), Current: decimal.NewFromInt(500), Weight: 3},
		{Title: "Items", Metric: models.GoalMetricItemsSold, Target: decimal.NewFromInt(10), Current: decimal.NewFromInt(20), Weight: 1},
	} {
		g.ID, g.PeriodStart, g.PeriodEnd = uuid.New(), start, end
		require.NoError(t, goals.Create(t.Context(), &g))
	}

	w := serve(newGoalRouter(goals), httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var overview struct {
		Goals []struct {
			Title   string `json:"title"`
			Percent string `json:"percent"`
		} `json:"goals"`
		WeightedPercent string `json:"weighted_percent"`
	}
	decodeData(t, w, &overview)
	require.Len(t, overview.Goals, 2)
	percents := map[string]string{}
	for _, g := range overview.Goals {
		percents[g.Title] = g.Percent
	}
	assert.Equal(t, "50", percents["Revenue"])
	assert.Equal(t, "100", percents["Items"])
	// (3*50 + 1*100) / 4
	assert.Equal(t, "62.5", overview.WeightedPercent)
}

func TestGoalHandler_CreateUpdate(t *testing.T) {
	t.Parallel()

	goals := fakeGoals{newMemStore[models.Goal]()}
	r := newGoalRouter(goals)

	w := serve(r, newTestRequest(http.MethodPost, "/api/v1/goals", map[string]any{
		"title": "Q3 profit", "metric": "profit", "target": "2500", "current": "0",
		"period_start": "2026-07-01", "period_end": "2026-09-30",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID     uuid.UUID `json:"id"`
		Weight int       `json:"weight"`
	}
	decodeData(t, w, &created)
	assert.Equal(t, 1, created.Weight)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero target", map[string]any{"title": "x", "metric": "profit", "target": "0", "period_start": "2026-01-01", "period_end": "2026-02-01"}},
		{"bad metric", map[string]any{"title": "x", "metric": "followers", "target": "5", "period_start": "2026-01-01", "period_end": "2026-02-01"}},
		{"reversed period", map[string]any{"title": "x", "metric": "custom", "target": "5", "period_start": "2026-03-01", "period_end": "2026-02-01"}},
	}
	for _, tt := range tests {
		w = serve(r, newTestRequest(http.MethodPost, "/api/v1/goals", tt.body))
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.name)
	}

	path := "/api/v1/goals/" + created.ID.String()
	w = serve(r, newTestRequest(http.MethodPatch, path, map[string]any{"current": "1250", "weight": 2}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated struct {
		Percent string `json:"percent"`
		Weight  int    `json:"weight"`
	}
	decodeData(t, w, &updated)
	assert.Equal(t, "50", updated.Percent)
	assert.Equal(t, 2, updated.Weight)

	w = serve(r, newTestRequest(http.MethodPatch, path, map[string]any{"period_end": "2026-01-01"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
