package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(nil, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.handlers)
			assert.Equal(t, time.Minute, queue.retryDelay)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "mailq:job:", JobKeyPrefix)
	assert.Equal(t, "mailq:pending", JobQueueKey)
	assert.Equal(t, "mailq:processing", JobProcessingKey)
	assert.Equal(t, "mailq:delayed", JobDelayedKey)
	assert.Equal(t, "mailq:stats", JobStatsKey)

	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func newRedisQueue(t *testing.T) *Queue {
	t.Helper()
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	q := NewQueue(client, 1)
	q.SetRetryDelay(10 * time.Millisecond)
	return q
}

func TestProcessJobCompletes(t *testing.T) {
	q := newRedisQueue(t)
	ctx := context.Background()

	var outcomes []string
	q.OnOutcome = func(_ JobType, outcome string) { outcomes = append(outcomes, outcome) }

	var got map[string]interface{}
	q.Register(JobTypePurchaseConfirmation, func(_ context.Context, job *Job) error {
		got = job.Payload
		return nil
	})

	enqueued, err := q.EnqueueJob(ctx, JobTypePurchaseConfirmation, map[string]interface{}{"to": "a@example.com"})
	require.NoError(t, err)

	job, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, enqueued.ID, job.ID)

	q.processJob(ctx, job)

	assert.Equal(t, "a@example.com", got["to"])
	assert.Equal(t, []string{"completed"}, outcomes)

	_, err = q.GetJob(ctx, job.ID)
	assert.Error(t, err, "completed jobs are removed")

	pending, delayed, processing, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending+delayed+processing)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusPending])
	assert.Equal(t, int64(1), stats[JobStatusCompleted])
}

func TestProcessJobRetriesThenFails(t *testing.T) {
	q := newRedisQueue(t)
	ctx := context.Background()

	var outcomes []string
	q.OnOutcome = func(_ JobType, outcome string) { outcomes = append(outcomes, outcome) }
	q.Register(JobTypePurchaseConfirmation, func(context.Context, *Job) error {
		return errors.New("smtp down")
	})

	_, err := q.EnqueueJob(ctx, JobTypePurchaseConfirmation, map[string]interface{}{})
	require.NoError(t, err)

	job, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	q.processJob(ctx, job)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, "smtp down", stored.ErrorMsg)

	_, delayed, _, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), delayed)
	assert.Zero(t, q.promoteDue(ctx, time.Now().Add(-time.Second)), "backoff not elapsed")
	assert.Equal(t, 1, q.promoteDue(ctx, time.Now().Add(time.Second)))

	job, err = q.dequeueJob(ctx)
	require.NoError(t, err)
	job.MaxRetries = 2
	q.processJob(ctx, job)

	stored, err = q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, []string{"retrying", "failed"}, outcomes)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusFailed])
}

func TestProcessJobUnknownType(t *testing.T) {
	q := newRedisQueue(t)
	ctx := context.Background()

	_, err := q.EnqueueJob(ctx, JobType("unknown"), nil)
	require.NoError(t, err)
	job, err := q.dequeueJob(ctx)
	require.NoError(t, err)

	q.processJob(ctx, job)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.ErrorMsg, "unknown job type")
}

func TestSweepRecoversStuckJobs(t *testing.T) {
	q := newRedisQueue(t)
	ctx := context.Background()

	_, err := q.EnqueueJob(ctx, JobTypePurchaseConfirmation, nil)
	require.NoError(t, err)
	job, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	job.MarkAsProcessing()
	q.save(ctx, job)

	assert.Zero(t, q.sweepOnce(ctx, time.Minute, time.Now()))
	assert.Equal(t, 1, q.sweepOnce(ctx, time.Minute, time.Now().Add(2*time.Minute)))

	pending, _, processing, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
	assert.Zero(t, processing)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
	assert.Equal(t, "recovered by sweeper", stored.ErrorMsg)
}

func TestWorkersDrainQueue(t *testing.T) {
	q := newRedisQueue(t)
	ctx := context.Background()

	var mu sync.Mutex
	seen := map[string]bool{}
	var calls int32
	q.Register(JobTypePurchaseConfirmation, func(_ context.Context, job *Job) error {
		atomic.AddInt32(&calls, 1)
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		return nil
	})

	q.Start()
	defer q.Stop()

	for i := 0; i < 3; i++ {
		_, err := q.EnqueueJob(ctx, JobTypePurchaseConfirmation, map[string]interface{}{"n": i})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, 5*time.Second, 20*time.Millisecond)
	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
}
