package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/resale-hub/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResyncScheduler_InvalidSpec(t *testing.T) {
	t.Parallel()
	_, err := NewResyncScheduler(&fakeEnqueuer{}, "every tuesday", nil)
	assert.Error(t, err)
}

func TestResyncScheduler_EnqueueResync(t *testing.T) {
	t.Parallel()

	enq := &fakeEnqueuer{}
	s, err := NewResyncScheduler(enq, "@daily", nil)
	require.NoError(t, err)

	require.NoError(t, s.EnqueueResync(context.Background()))
	require.Len(t, enq.jobs, 1)
	job := enq.jobs[0]
	assert.Equal(t, queue.JobTypeCatalogResync, job.Type)
	assert.Nil(t, job.ItemID)
	require.NotNil(t, job.NotAfter)
	assert.True(t, job.NotAfter.After(job.CreatedAt))
	assert.Equal(t, "schedule", job.Metadata["trigger"])
}

func TestResyncScheduler_EnqueueFailure(t *testing.T) {
	t.Parallel()

	s, err := NewResyncScheduler(&fakeEnqueuer{err: errors.New("down")}, "0 3 * * *", nil)
	require.NoError(t, err)
	assert.Error(t, s.EnqueueResync(context.Background()))
}

func TestResyncScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s, err := NewResyncScheduler(&fakeEnqueuer{}, "@hourly", nil)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
