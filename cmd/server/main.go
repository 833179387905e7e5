package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/resale-hub/internal/cache"
	"github.com/benvon/resale-hub/internal/cart"
	"github.com/benvon/resale-hub/internal/config"
	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/handlers"
	"github.com/benvon/resale-hub/internal/logger"
	"github.com/benvon/resale-hub/internal/middleware"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/queue"
	"github.com/benvon/resale-hub/internal/services/ai"
	"github.com/benvon/resale-hub/internal/services/bgremoval"
	"github.com/benvon/resale-hub/internal/services/oidc"
	"github.com/benvon/resale-hub/internal/services/payments"
	"github.com/benvon/resale-hub/internal/services/storefront"
	"github.com/benvon/resale-hub/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "resale-hub-api"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging (includes AI prompt logging)")
	migrateFlag := flag.Bool("migrate", false, "Apply pending database migrations before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid server configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
		zap.Bool("ai_enabled", cfg.OpenAIKey != ""),
		zap.Bool("payments_enabled", cfg.StripeSecretKey != ""),
	)

	ctx := context.Background()

	tracingEnabled := false
	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, telemetry.Config{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Endpoint:       cfg.OTELEndpoint,
			Insecure:       cfg.OTELInsecure,
			SampleRatio:    cfg.OTELSampleRatio,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracingEnabled = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	if *migrateFlag {
		if err := db.Migrate(ctx); err != nil {
			zapLogger.Fatal("failed_to_apply_migrations", zap.Error(err))
		}
		zapLogger.Info("migrations_applied")
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	jobQueue := connectQueue(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	itemRepo := database.NewInventoryRepository(db)
	apiKeyRepo := database.NewAPIKeyRepository(db)
	usageRepo := database.NewUsageRepository(db)
	expenseRepo := database.NewExpenseRepository(db)
	capitalRepo := database.NewCapitalAccountRepository(db)
	taskRepo := database.NewTaskRepository(db)
	goalRepo := database.NewGoalRepository(db)
	contactRepo := database.NewContactRepository(db)
	storefrontConfigRepo := database.NewStorefrontConfigRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Services
	verifier := oidc.NewVerifier(oidc.NewJWKSManager(nil), cfg.OIDCJWKSURL, cfg.OIDCIssuer, cfg.OIDCAudience)
	relay := bgremoval.NewRelay(apiKeyRepo, usageRepo,
		bgremoval.NewClient(cfg.RemoveBGURL, &http.Client{Timeout: 2 * time.Minute}, zapLogger),
		zapLogger,
	)
	shop := storefront.NewService(itemRepo, storefrontConfigRepo, cart.NewStore(redisClient, cart.DefaultTTL),
		payments.NewStripeClient(ctx, cfg.StripeSecretKey, ""),
		cfg.StripeSuccessURL, cfg.StripeCancelURL, zapLogger,
	)
	var generator ai.ListingGenerator
	if cfg.OpenAIKey != "" {
		generator = ai.NewOpenAIProvider(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	} else {
		zapLogger.Warn("openai_key_not_configured_ai_features_disabled")
	}

	// Handlers
	healthChecker := handlers.NewHealthChecker(map[string]handlers.HealthCheck{
		"database": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"rabbitmq": jobQueue.HealthCheck,
	}, zapLogger)
	shopHandler := handlers.NewShopHandler(shop, storefrontConfigRepo, zapLogger)

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order: the first Use is outermost.
	zapLogger.Info("setting_up_middleware")
	if tracingEnabled {
		r.Use(telemetry.RouterMiddleware(serviceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.CORSOrigins, zapLogger, time.Minute)
	r.Use(corsReloader.Middleware())
	r.Use(middleware.Metrics)
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	limiters := make(map[string]*middleware.RateLimitReloader, len(models.DefaultRates))
	for scope := range models.DefaultRates {
		rl, err := middleware.NewRateLimitReloader(redisClient, ratelimitConfigRepo, scope, zapLogger, time.Minute)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rate_limiter", zap.String("scope", scope), zap.Error(err))
		}
		limiters[scope] = rl
	}

	// Public routes
	healthChecker.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml")).RegisterRoutes(r)

	api := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(verifier, zapLogger)

	mount := func(prefix string, scope string, maxBody int64, timeout time.Duration, protected bool) *mux.Router {
		sr := api.PathPrefix(prefix).Subrouter()
		if protected {
			sr.Use(authMW)
		}
		sr.Use(limiters[scope].Middleware())
		sr.Use(middleware.MaxRequestSize(maxBody, zapLogger))
		sr.Use(middleware.ContentType(zapLogger))
		sr.Use(middleware.Timeout(timeout))
		return sr
	}
	operator := func(prefix string) *mux.Router {
		return mount(prefix, models.RatelimitScopeAPI, middleware.DefaultMaxRequestSize, middleware.DefaultRequestTimeout, true)
	}

	handlers.NewBackgroundHandler(relay, apiKeyRepo, zapLogger).RegisterRoutes(
		mount("/background", models.RatelimitScopeRelay, middleware.DefaultMaxRequestSize, middleware.RelayRequestTimeout, true))
	handlers.NewInventoryHandler(itemRepo, jobQueue, zapLogger).RegisterRoutes(operator("/inventory"))
	handlers.NewExpenseHandler(expenseRepo).RegisterRoutes(operator("/expenses"))
	handlers.NewCapitalHandler(capitalRepo).RegisterRoutes(operator("/capital"))
	handlers.NewReportHandler(itemRepo, expenseRepo, zapLogger).RegisterRoutes(operator("/reports"))
	handlers.NewTaskHandler(taskRepo).RegisterRoutes(operator("/tasks"))
	handlers.NewGoalHandler(goalRepo).RegisterRoutes(operator("/goals"))
	handlers.NewContactHandler(contactRepo).RegisterRoutes(operator("/contacts"))
	handlers.NewAIHandler(generator, zapLogger).RegisterRoutes(operator("/ai"))
	handlers.MeHandler{}.RegisterRoutes(operator("/me"))
	shopHandler.RegisterAdminRoutes(operator("/storefront"))
	shopHandler.RegisterRoutes(mount("/shop", models.RatelimitScopeStorefront,
		middleware.DefaultMaxRequestSize, middleware.DefaultRequestTimeout, false))

	// Preflight requests that reach the router after CORS has answered them.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Relay batches may run for RelayRequestTimeout before answering.
		WriteTimeout:   middleware.RelayRequestTimeout + 30*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go corsReloader.Start(bgCtx)
	for _, rl := range limiters {
		go rl.Start(bgCtx)
	}
	startDLQCollector(bgCtx, jobQueue, zapLogger)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff to ride out broker startup.
func connectQueue(url string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}
		lastErr = err
		delay := min(initialDelay*time.Duration(1<<uint(attempt)), 30*time.Second)
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

// startDLQCollector drops dead-lettered jobs older than a day, checking hourly.
func startDLQCollector(ctx context.Context, purger queue.DLQPurger, zapLogger *zap.Logger) {
	const interval, retention = time.Hour, 24 * time.Hour
	gc := queue.NewGarbageCollector(purger, interval, retention, zapLogger)
	go func() {
		if err := gc.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_garbage_collector",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention),
	)
}
