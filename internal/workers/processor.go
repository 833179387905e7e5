// Package workers consumes background jobs: Shopify sync and AI item descriptions.
package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/metrics"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/queue"
	"github.com/benvon/resale-hub/internal/services/ai"
	"github.com/benvon/resale-hub/internal/services/shopify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrPermanent marks failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

// CatalogSyncer is implemented by shopify.Syncer
type CatalogSyncer interface {
	SyncItem(ctx context.Context, id uuid.UUID) (shopify.SyncOutcome, error)
	SyncAll(ctx context.Context) (map[shopify.SyncOutcome]int, error)
}

// ItemDescriber is the inventory access needed to write AI descriptions
type ItemDescriber interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	SetDescription(ctx context.Context, id uuid.UUID, description string) error
}

// Processor dispatches jobs by type
type Processor struct {
	syncer    CatalogSyncer // nil when Shopify is not configured
	generator ai.ListingGenerator
	items     ItemDescriber
	requeue   queue.Enqueuer
	logger    *zap.Logger
}

// NewProcessor creates a job processor. syncer and generator may be nil; their jobs are then dropped.
func NewProcessor(syncer CatalogSyncer, generator ai.ListingGenerator, items ItemDescriber, requeue queue.Enqueuer, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		syncer:    syncer,
		generator: generator,
		items:     items,
		requeue:   requeue,
		logger:    logger,
	}
}

// ProcessJob runs one message and settles it: ack on success, re-enqueue with a bumped
// retry count on transient failure, dead-letter otherwise.
func (p *Processor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	err := job.Validate()
	if err == nil {
		err = p.run(ctx, job)
	}
	metrics.CollectJob(string(job.Type), err)

	if err == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil
	}
	return p.handleJobError(ctx, msg, job, err)
}

func (p *Processor) run(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeShopifySync:
		if p.syncer == nil {
			p.logger.Debug("shopify_sync_skipped_not_configured", zap.String("job_id", job.ID.String()))
			return nil
		}
		outcome, err := p.syncer.SyncItem(ctx, *job.ItemID)
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: item %s no longer exists", ErrPermanent, job.ItemID)
		}
		if err != nil {
			return err
		}
		p.logger.Info("shopify_item_synced",
			zap.String("item_id", job.ItemID.String()),
			zap.String("outcome", string(outcome)),
		)
		return nil

	case queue.JobTypeCatalogResync:
		if p.syncer == nil {
			return nil
		}
		counts, err := p.syncer.SyncAll(ctx)
		p.logger.Info("shopify_catalog_resynced",
			zap.Int("created", counts[shopify.OutcomeCreated]),
			zap.Int("updated", counts[shopify.OutcomeUpdated]),
			zap.Int("skipped", counts[shopify.OutcomeSkipped]),
			zap.Int("failed", counts["failed"]),
		)
		return err

	case queue.JobTypeDescribeItem:
		return p.describe(ctx, *job.ItemID)
	}
	return fmt.Errorf("%w: unknown job type %s", ErrPermanent, job.Type)
}

func (p *Processor) describe(ctx context.Context, id uuid.UUID) error {
	if p.generator == nil {
		return fmt.Errorf("%w: AI assistant is not configured", ErrPermanent)
	}
	item, err := p.items.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: item %s no longer exists", ErrPermanent, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}
	if len(item.ImageURLs) == 0 {
		return fmt.Errorf("%w: item %s has no photos", ErrPermanent, id)
	}

	ctx = ai.WithItemID(ctx, id.String())
	suggestion, err := p.generator.SuggestListing(ctx, ai.ListingInput{
		ImageURL:  item.ImageURLs[0],
		Notes:     item.Title,
		Brand:     item.Brand,
		Category:  item.Category,
		Size:      item.Size,
		Condition: string(item.Condition),
	})
	if err != nil {
		return err
	}
	if err := p.items.SetDescription(ctx, id, suggestion.Description); err != nil {
		return fmt.Errorf("failed to save description: %w", err)
	}
	p.logger.Info("item_description_generated", zap.String("item_id", id.String()))
	return nil
}

func (p *Processor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	var invalid *queue.InvalidJobError
	permanent := errors.Is(err, ErrPermanent) || errors.As(err, &invalid) || ai.IsQuotaError(err)

	if !permanent && job.CanRetry() && p.requeue != nil {
		retry := *job
		retry.IncrementRetry()
		enqueueErr := p.requeue.Enqueue(ctx, &retry)
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				p.logger.Warn("job_ack_failed", zap.String("job_id", job.ID.String()), zap.Error(ackErr))
			}
			p.logger.Warn("job_failed_will_retry",
				zap.String("job_id", job.ID.String()),
				zap.String("job_type", string(job.Type)),
				zap.Int("attempt", retry.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Error(err),
			)
			return fmt.Errorf("job failed (will retry): %w", err)
		}
		p.logger.Warn("job_requeue_failed", zap.String("job_id", job.ID.String()), zap.Error(enqueueErr))
	}

	if nackErr := msg.Nack(false); nackErr != nil {
		p.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
	}
	p.logger.Error("job_dead_lettered",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
		zap.Bool("permanent", permanent),
		zap.Error(err),
	)
	return fmt.Errorf("job failed: %w", err)
}
