package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RatelimitConfigSource is implemented by database.RatelimitConfigRepository
type RatelimitConfigSource interface {
	Get(ctx context.Context, scope string) (*models.RatelimitConfig, error)
}

// RateLimitReloader limits one scope (api, relay, storefront) per client IP with
// ulule/limiter on Redis, and periodically reloads that scope's rate from the database.
type RateLimitReloader struct {
	scope       string
	next        http.Handler
	store       limiter.Store
	repo        RatelimitConfigSource
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
	mu          sync.RWMutex
	current     http.Handler
	rate        string
}

// NewRateLimitReloader creates the limiter for scope. Counters from different scopes never mix.
func NewRateLimitReloader(redisClient *redis.Client, repo RatelimitConfigSource, scope string, log *zap.Logger, reloadInterval time.Duration) (*RateLimitReloader, error) {
	defaultRate, ok := models.DefaultRates[scope]
	if !ok {
		return nil, fmt.Errorf("unknown rate limit scope %q", scope)
	}
	store, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix: "resalehub:ratelimit:" + scope,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for rate limiter: %w", err)
	}
	return &RateLimitReloader{
		scope:       scope,
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}, nil
}

// Middleware returns a middleware that wraps next with rate limiting and hot-reload.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *RateLimitReloader) Start(ctx context.Context) {
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

func (r *RateLimitReloader) resolveRate(ctx context.Context) limiter.Rate {
	rateStr := r.defaultRate
	cfg, err := r.repo.Get(ctx, r.scope)
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_using_default",
			zap.String("scope", r.scope),
			zap.Error(err),
		)
	} else if cfg != nil && cfg.Rate != "" {
		rateStr = cfg.Rate
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.String("scope", r.scope),
			zap.String("rate", rateStr),
			zap.Error(err),
		)
		rateStr = r.defaultRate
		rate, _ = limiter.NewRateFromFormatted(rateStr)
	}
	if rateStr != r.rate {
		r.log.Info("ratelimit_applied", zap.String("scope", r.scope), zap.String("rate", rateStr))
		r.rate = rateStr
	}
	return rate
}

func (r *RateLimitReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}
	instance := limiter.New(r.store, r.resolveRate(ctx))
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, req *http.Request) {
			respondErrorJSON(w, req, http.StatusTooManyRequests, "rate_limited", "Too many requests, slow down", r.log)
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, req *http.Request, err error) {
			// Redis trouble should not take the API down with it.
			r.log.Warn("ratelimit_store_error", zap.String("scope", r.scope), zap.Error(err))
			r.next.ServeHTTP(w, req)
		}),
	)
	h := mw.Handler(r.next)

	r.mu.Lock()
	r.current = h
	r.mu.Unlock()
}

// ServeHTTP implements http.Handler.
func (r *RateLimitReloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
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
