package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/resale-hub/internal/config"
	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/logger"
	"github.com/benvon/resale-hub/internal/queue"
	"github.com/benvon/resale-hub/internal/services/ai"
	"github.com/benvon/resale-hub/internal/services/shopify"
	"github.com/benvon/resale-hub/internal/telemetry"
	"github.com/benvon/resale-hub/internal/workers"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const serviceName = "resale-hub-worker"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging (includes AI prompt logging)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatalf("RABBITMQ_URL is required")
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Bool("shopify_enabled", cfg.ShopifyEnabled()),
		zap.Bool("ai_enabled", cfg.OpenAIKey != ""),
		zap.String("catalog_sync_schedule", cfg.CatalogSyncSchedule),
	)

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
			ServiceName: serviceName,
			Endpoint:    cfg.OTELEndpoint,
			Insecure:    cfg.OTELInsecure,
			SampleRatio: cfg.OTELSampleRatio,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
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

	itemRepo := database.NewInventoryRepository(db)

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	var syncer workers.CatalogSyncer
	if cfg.ShopifyEnabled() {
		client := shopify.NewClient(cfg.ShopifyShopDomain, cfg.ShopifyAccessToken, nil)
		syncer = shopify.NewSyncer(itemRepo, client, zapLogger)

		scheduler, err := workers.NewResyncScheduler(jobQueue, cfg.CatalogSyncSchedule, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_create_resync_scheduler", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		zapLogger.Warn("shopify_not_configured_sync_jobs_will_be_skipped")
	}

	var generator ai.ListingGenerator
	if cfg.OpenAIKey != "" {
		generator = ai.NewOpenAIProvider(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	} else {
		zapLogger.Warn("openai_key_not_configured_describe_jobs_will_fail")
	}

	processor := workers.NewProcessor(syncer, generator, itemRepo, jobQueue, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	zapLogger.Info("worker_started")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				process(ctx, processor, msg, zapLogger)
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	select {
	case <-sigChan:
		zapLogger.Info("shutdown_signal_received")
	case <-done:
		zapLogger.Warn("consumer_stopped")
	}
	cancel()
	zapLogger.Info("worker_stopped")
}

func process(ctx context.Context, processor *workers.Processor, msg queue.MessageInterface, zapLogger *zap.Logger) {
	job := msg.GetJob()
	ctx, span := telemetry.StartSpan(ctx, "job."+string(job.Type))
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.Int("job.retry_count", job.RetryCount),
	)

	if err := processor.ProcessJob(ctx, msg); err != nil {
		span.RecordError(err)
		zapLogger.Error("job_processing_failed",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
			zap.Error(err),
		)
	}
}
