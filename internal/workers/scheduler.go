package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/resale-hub/internal/queue"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ResyncScheduler enqueues a full-catalog Shopify resync on a cron schedule
type ResyncScheduler struct {
	jobQueue queue.Enqueuer
	logger   *zap.Logger
	cron     *cron.Cron
	// resyncTTL bounds how long a queued resync stays useful; the next run supersedes it.
	resyncTTL time.Duration
}

// NewResyncScheduler parses spec (standard 5-field cron or a descriptor such as "@daily").
func NewResyncScheduler(jobQueue queue.Enqueuer, spec string, logger *zap.Logger) (*ResyncScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ResyncScheduler{
		jobQueue:  jobQueue,
		logger:    logger,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		resyncTTL: 12 * time.Hour,
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.EnqueueResync(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid catalog sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// EnqueueResync publishes one catalog_resync job.
func (s *ResyncScheduler) EnqueueResync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	job := queue.NewJob(queue.JobTypeCatalogResync, nil)
	notAfter := job.CreatedAt.Add(s.resyncTTL)
	job.NotAfter = &notAfter
	job.Metadata["trigger"] = "schedule"

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		s.logger.Warn("failed_to_schedule_catalog_resync", zap.Error(err))
		return fmt.Errorf("failed to enqueue catalog resync: %w", err)
	}
	s.logger.Info("scheduled_catalog_resync", zap.String("job_id", job.ID.String()))
	return nil
}

// Start begins firing on schedule. Stop must be called to release the cron goroutine.
func (s *ResyncScheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("catalog_resync_schedule_started", zap.Time("next_run", e.Next))
	}
}

// Stop halts the schedule and waits for a running enqueue to finish.
func (s *ResyncScheduler) Stop() {
	<-s.cron.Stop().Done()
}
