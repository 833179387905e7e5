package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeCorsSource struct {
	cfg *models.CorsConfig
	err error
}

func (f *fakeCorsSource) Get(context.Context) (*models.CorsConfig, error) { return f.cfg, f.err }

func preflight(h http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCORSReloader(t *testing.T) {
	t.Parallel()

	t.Run("permissive by default", func(t *testing.T) {
		t.Parallel()
		r := NewCORSReloader(&fakeCorsSource{}, "", zap.NewNop(), 0)
		h := r.Middleware()(okHandler())
		rr := preflight(h, "https://anywhere.example")
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("stored origins replace fallback", func(t *testing.T) {
		t.Parallel()
		src := &fakeCorsSource{cfg: &models.CorsConfig{AllowedOrigins: "https://shop.example", MaxAge: 60}}
		r := NewCORSReloader(src, "*", zap.NewNop(), 0)
		h := r.Middleware()(okHandler())

		assert.Equal(t, "https://shop.example", preflight(h, "https://shop.example").Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, preflight(h, "https://evil.example").Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("reload picks up changes", func(t *testing.T) {
		t.Parallel()
		src := &fakeCorsSource{err: errors.New("db down")}
		r := NewCORSReloader(src, "https://fallback.example", zap.NewNop(), 0)
		h := r.Middleware()(okHandler())
		assert.Equal(t, "https://fallback.example", preflight(h, "https://fallback.example").Header().Get("Access-Control-Allow-Origin"))

		src.err = nil
		src.cfg = &models.CorsConfig{AllowedOrigins: "https://new.example"}
		r.load(context.Background())
		assert.Equal(t, "https://new.example", preflight(h, "https://new.example").Header().Get("Access-Control-Allow-Origin"))
	})
}
