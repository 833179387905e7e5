package workers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/queue"
	"github.com/benvon/resale-hub/internal/services/ai"
	"github.com/benvon/resale-hub/internal/services/shopify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *fakeMessage) Ack() error { m.acked = true; return nil }
func (m *fakeMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}
func (m *fakeMessage) GetJob() *queue.Job { return m.job }

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeSyncer struct {
	err   error
	calls int
}

func (f *fakeSyncer) SyncItem(context.Context, uuid.UUID) (shopify.SyncOutcome, error) {
	f.calls++
	return shopify.OutcomeUpdated, f.err
}

func (f *fakeSyncer) SyncAll(context.Context) (map[shopify.SyncOutcome]int, error) {
	f.calls++
	return map[shopify.SyncOutcome]int{shopify.OutcomeCreated: 2}, f.err
}

type fakeGenerator struct {
	err error
	got ai.ListingInput
}

func (f *fakeGenerator) SuggestListing(_ context.Context, in ai.ListingInput) (*ai.ListingSuggestion, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ListingSuggestion{Title: "Linen shirt", Description: "Breezy linen shirt."}, nil
}

type memItems struct {
	items        map[uuid.UUID]*models.InventoryItem
	descriptions map[uuid.UUID]string
}

func (m *memItems) GetByID(_ context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	if it, ok := m.items[id]; ok {
		return it, nil
	}
	return nil, database.ErrNotFound
}

func (m *memItems) SetDescription(_ context.Context, id uuid.UUID, d string) error {
	m.descriptions[id] = d
	return nil
}

func TestProcessor_ShopifySync(t *testing.T) {
	t.Parallel()

	syncer := &fakeSyncer{}
	p := NewProcessor(syncer, nil, nil, &fakeEnqueuer{}, nil)
	msg := &fakeMessage{job: queue.NewItemJob(queue.JobTypeShopifySync, uuid.New())}

	require.NoError(t, p.ProcessJob(context.Background(), msg))
	assert.True(t, msg.acked)
	assert.Equal(t, 1, syncer.calls)
}

func TestProcessor_ShopifyNotConfigured(t *testing.T) {
	t.Parallel()

	p := NewProcessor(nil, nil, nil, nil, nil)
	msg := &fakeMessage{job: queue.NewItemJob(queue.JobTypeShopifySync, uuid.New())}

	require.NoError(t, p.ProcessJob(context.Background(), msg))
	assert.True(t, msg.acked, "jobs for a disabled integration are dropped")
}

func TestProcessor_TransientFailureRequeues(t *testing.T) {
	t.Parallel()

	enq := &fakeEnqueuer{}
	p := NewProcessor(&fakeSyncer{err: errors.New("shopify 502")}, nil, nil, enq, nil)
	job := queue.NewItemJob(queue.JobTypeShopifySync, uuid.New())
	msg := &fakeMessage{job: job}

	err := p.ProcessJob(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, msg.acked)
	assert.False(t, msg.nacked)
	require.Len(t, enq.jobs, 1)
	assert.Equal(t, 1, enq.jobs[0].RetryCount)
	assert.Equal(t, job.ID, enq.jobs[0].ID)
	assert.Equal(t, 0, job.RetryCount, "original job is untouched")
}

func TestProcessor_RetriesExhaustedDeadLetters(t *testing.T) {
	t.Parallel()

	enq := &fakeEnqueuer{}
	p := NewProcessor(&fakeSyncer{err: errors.New("shopify 502")}, nil, nil, enq, nil)
	job := queue.NewItemJob(queue.JobTypeShopifySync, uuid.New())
	job.RetryCount = job.MaxRetries
	msg := &fakeMessage{job: job}

	require.Error(t, p.ProcessJob(context.Background(), msg))
	assert.True(t, msg.nacked)
	assert.False(t, msg.requeue)
	assert.Empty(t, enq.jobs)
}

func TestProcessor_RequeueFailureDeadLetters(t *testing.T) {
	t.Parallel()

	p := NewProcessor(&fakeSyncer{err: errors.New("timeout")}, nil, nil, &fakeEnqueuer{err: errors.New("channel closed")}, nil)
	msg := &fakeMessage{job: queue.NewItemJob(queue.JobTypeShopifySync, uuid.New())}

	require.Error(t, p.ProcessJob(context.Background(), msg))
	assert.True(t, msg.nacked)
	assert.False(t, msg.acked)
}

func TestProcessor_InvalidJobDeadLetters(t *testing.T) {
	t.Parallel()

	enq := &fakeEnqueuer{}
	p := NewProcessor(&fakeSyncer{}, nil, nil, enq, nil)
	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeDescribeItem, nil)}

	require.Error(t, p.ProcessJob(context.Background(), msg))
	assert.True(t, msg.nacked)
	assert.Empty(t, enq.jobs)
}

func TestProcessor_Describe(t *testing.T) {
	t.Parallel()

	withPhoto := &models.InventoryItem{ID: uuid.New(), Title: "Shirt", Brand: "Acme", Condition: models.ConditionGood, ImageURLs: []string{"https://img/a.jpg"}}
	noPhoto := &models.InventoryItem{ID: uuid.New(), Title: "Scarf"}

	tests := []struct {
		name        string
		itemID      uuid.UUID
		genErr      error
		wantErr     bool
		wantRequeue bool
		wantDesc    bool
	}{
		{name: "writes description", itemID: withPhoto.ID, wantDesc: true},
		{name: "item without photos", itemID: noPhoto.ID, wantErr: true},
		{name: "missing item", itemID: uuid.New(), wantErr: true},
		{name: "provider rate limit retries", itemID: withPhoto.ID, genErr: &ai.APIError{StatusCode: 429, Code: "rate_limit_exceeded"}, wantErr: true, wantRequeue: true},
		{name: "provider quota dead-letters", itemID: withPhoto.ID, genErr: &ai.APIError{StatusCode: 429, Code: "insufficient_quota"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			items := &memItems{
				items:        map[uuid.UUID]*models.InventoryItem{withPhoto.ID: withPhoto, noPhoto.ID: noPhoto},
				descriptions: map[uuid.UUID]string{},
			}
			gen := &fakeGenerator{err: tt.genErr}
			enq := &fakeEnqueuer{}
			p := NewProcessor(nil, gen, items, enq, nil)
			msg := &fakeMessage{job: queue.NewItemJob(queue.JobTypeDescribeItem, tt.itemID)}

			err := p.ProcessJob(context.Background(), msg)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantRequeue, len(enq.jobs) == 1)
			if tt.wantDesc {
				assert.Equal(t, "Breezy linen shirt.", items.descriptions[tt.itemID])
				assert.Equal(t, "https://img/a.jpg", gen.got.ImageURL)
				assert.Equal(t, "Acme", gen.got.Brand)
			} else {
				assert.Empty(t, items.descriptions)
			}
		})
	}
}

func TestProcessor_CatalogResync(t *testing.T) {
	t.Parallel()

	syncer := &fakeSyncer{}
	p := NewProcessor(syncer, nil, nil, nil, nil)
	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeCatalogResync, nil)}

	require.NoError(t, p.ProcessJob(context.Background(), msg))
	assert.True(t, msg.acked)
	assert.Equal(t, 1, syncer.calls)
}
