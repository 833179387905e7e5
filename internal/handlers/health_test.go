package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name       string
		query      string
		checks     map[string]HealthCheck
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "basic mode skips checks",
			checks:     map[string]HealthCheck{"database": down},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name:       "extended all healthy",
			query:      "?mode=extended",
			checks:     map[string]HealthCheck{"database": ok, "redis": ok, "rabbitmq": ok},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
			wantChecks: map[string]string{"database": "healthy", "redis": "healthy", "rabbitmq": "healthy"},
		},
		{
			name:       "extended one failing",
			query:      "?mode=extended",
			checks:     map[string]HealthCheck{"database": ok, "rabbitmq": down},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
			wantChecks: map[string]string{"database": "healthy", "rabbitmq": "unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(tt.checks, nil)
			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("Status = %s, want %s", resp.Status, tt.wantBody)
			}
			if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
				t.Errorf("Timestamp %q is not RFC3339", resp.Timestamp)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("Checks = %v, want %v", resp.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("Checks[%s] = %s, want %s", name, resp.Checks[name], want)
				}
			}
		})
	}
}

func TestHealthChecker_RedisPing(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := NewHealthChecker(map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}, nil)

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	mr.Close()
	w = httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status after redis shutdown = %d, want 503", w.Code)
	}
}
