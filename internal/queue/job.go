package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeShopifySync pushes one inventory item to Shopify
	JobTypeShopifySync JobType = "shopify_sync"
	// JobTypeDescribeItem asks the AI assistant for a listing description
	JobTypeDescribeItem JobType = "describe_item"
	// JobTypeCatalogResync pushes every syncable item to Shopify
	JobTypeCatalogResync JobType = "catalog_resync"
)

// DefaultMaxRetries bounds redelivery of a failing job before it is dead-lettered
const DefaultMaxRetries = 3

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID         `json:"id"`
	Type       JobType           `json:"type"`
	ItemID     *uuid.UUID        `json:"item_id,omitempty"`
	NotAfter   *time.Time        `json:"not_after,omitempty"` // nil = no expiration
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
}

// NewJob creates a new job. itemID is nil for catalog-wide jobs.
func NewJob(jobType JobType, itemID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		ItemID:     itemID,
		Metadata:   make(map[string]string),
		CreatedAt:  time.Now().UTC(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewItemJob creates a job for a single inventory item.
func NewItemJob(jobType JobType, itemID uuid.UUID) *Job {
	return NewJob(jobType, &itemID)
}

// IsExpired checks if the job has passed its NotAfter deadline
func (j *Job) IsExpired(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}

// Validate reports whether the job carries what its type needs.
func (j *Job) Validate() error {
	switch j.Type {
	case JobTypeShopifySync, JobTypeDescribeItem:
		if j.ItemID == nil || *j.ItemID == uuid.Nil {
			return &InvalidJobError{JobID: j.ID, Reason: "item_id is required for " + string(j.Type)}
		}
	case JobTypeCatalogResync:
	default:
		return &InvalidJobError{JobID: j.ID, Reason: "unknown job type " + string(j.Type)}
	}
	return nil
}

// InvalidJobError is returned for jobs that can never succeed
type InvalidJobError struct {
	JobID  uuid.UUID
	Reason string
}

func (e *InvalidJobError) Error() string {
	return "invalid job " + e.JobID.String() + ": " + e.Reason
}
