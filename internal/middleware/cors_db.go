package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// CorsConfigSource is implemented by database.CorsConfigRepository
type CorsConfigSource interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

// CORSReloader wraps rs/cors and periodically reloads the policy from the database.
// Until an operator stores a policy the fallback origins (default "*") apply.
type CORSReloader struct {
	next     http.Handler
	repo     CorsConfigSource
	fallback *models.CorsConfig
	log      *zap.Logger
	interval time.Duration
	mu       sync.RWMutex
	current  http.Handler
}

// NewCORSReloader creates a CORS middleware that loads config from the DB and hot-reloads it.
func NewCORSReloader(repo CorsConfigSource, fallbackOrigins string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		repo:     repo,
		fallback: models.DefaultCorsConfig(fallbackOrigins),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware returns a middleware that wraps next with CORS and hot-reload.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *CORSReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.load(ctx)
		}
	}
}

func (r *CORSReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}
	cfg := r.fallback
	stored, err := r.repo.Get(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_cors_config_using_fallback", zap.Error(err))
	case stored != nil:
		cfg = stored
	}

	origins := database.AllowedOriginsSlice(cfg.AllowedOrigins)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
	})
	h := c.Handler(r.next)

	r.mu.Lock()
	r.current = h
	r.mu.Unlock()
}

// ServeHTTP implements http.Handler.
func (r *CORSReloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	h := r.current
	r.mu.RUnlock()
	if h != nil {
		h.ServeHTTP(w, req)
		return
	}
	if r.next != nil {
		r.next.ServeHTTP(w, req)
	}
}
