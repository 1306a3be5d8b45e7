package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueBackoffDoublesAndCaps(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{RetryDelay: 30 * time.Second})

	assert.Equal(t, 30*time.Second, q.backoff(1))
	assert.Equal(t, time.Minute, q.backoff(2))
	assert.Equal(t, 2*time.Minute, q.backoff(3))
	assert.Equal(t, maxRetryDelay, q.backoff(10))
}

func TestQueueRetriesFailedJob(t *testing.T) {
	var attempts int32
	done := make(chan Job, 1)
	handler := func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		done <- job
		return nil
	}

	q := NewQueue("test", handler, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 5 * time.Millisecond, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "usage"}))

	select {
	case job := <-done:
		assert.Equal(t, 1, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueDepthZeroWhenIdle(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Equal(t, 0, q.Depth())
}
