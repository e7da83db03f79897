package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis keys
	JobKeyPrefix     = "mailq:job:"
	JobQueueKey      = "mailq:pending"
	JobProcessingKey = "mailq:processing"
	JobDelayedKey    = "mailq:delayed"
	JobStatsKey      = "mailq:stats"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// Handler executes one job. A returned error marks the attempt failed.
type Handler func(ctx context.Context, job *Job) error

// Queue is a Redis list backed job queue. Pending ids live in JobQueueKey,
// claimed ids in JobProcessingKey and retries wait in the JobDelayedKey
// sorted set until their backoff has elapsed.
type Queue struct {
	client     *redis.Client
	workers    int
	workerPool chan struct{}
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool

	handlersMu sync.RWMutex
	handlers   map[JobType]Handler

	// retryDelay is multiplied by the attempt count.
	retryDelay    time.Duration
	sweepMaxAge   time.Duration
	sweepInterval time.Duration

	// OnOutcome, when set, is called with "completed", "retrying" or "failed".
	OnOutcome func(jobType JobType, outcome string)
}

func NewQueue(client *redis.Client, workers int) *Queue {
	if workers <= 0 {
		workers = 3
	}

	return &Queue{
		client:        client,
		workers:       workers,
		workerPool:    make(chan struct{}, workers),
		stopCh:        make(chan struct{}),
		handlers:      make(map[JobType]Handler),
		retryDelay:    time.Minute,
		sweepMaxAge:   10 * time.Minute,
		sweepInterval: time.Minute,
	}
}

// Register binds a handler to a job type.
func (q *Queue) Register(jobType JobType, h Handler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = h
}

// SetRetryDelay changes the base backoff between attempts.
func (q *Queue) SetRetryDelay(d time.Duration) {
	q.retryDelay = d
}

// Start launches the workers and the housekeeping loop. Calling it on a
// running queue is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.stopCh = make(chan struct{})
	q.running = true
	log.Infof("[MailQueue] %d workers starting", q.workers)

	for i := 0; i < q.workers; i++ {
		q.workerPool <- struct{}{}
		q.wg.Add(1)
		go q.worker(i)
	}

	q.wg.Add(1)
	go q.housekeeping()
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	close(q.stopCh)
	q.running = false
	q.wg.Wait()

	// drain slots so a later Start refills a clean pool
	for len(q.workerPool) > 0 {
		<-q.workerPool
	}
	log.Info("[MailQueue] stopped")
}

// housekeeping promotes due retries and recovers jobs left in processing by
// a crashed worker.
func (q *Queue) housekeeping() {
	defer q.wg.Done()
	promote := time.NewTicker(time.Second)
	sweep := time.NewTicker(q.sweepInterval)
	defer promote.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case now := <-promote.C:
			q.promoteDue(context.Background(), now)
		case now := <-sweep.C:
			q.sweepOnce(context.Background(), q.sweepMaxAge, now)
		}
	}
}

// promoteDue moves retries whose backoff ended before now onto the pending list.
func (q *Queue) promoteDue(ctx context.Context, now time.Time) int {
	ids, err := q.client.ZRangeByScore(ctx, JobDelayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		log.Errorf("[MailQueue] reading delayed jobs: %v", err)
		return 0
	}

	moved := 0
	for _, id := range ids {
		// ZRem decides the winner when several processes promote at once
		removed, err := q.client.ZRem(ctx, JobDelayedKey, id).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, JobQueueKey, id).Err(); err != nil {
			log.Errorf("[MailQueue] promoting %s: %v", id, err)
			continue
		}
		moved++
	}
	return moved
}

func (q *Queue) sweepOnce(ctx context.Context, maxAge time.Duration, now time.Time) int {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		log.Errorf("[MailQueue] reading processing list: %v", err)
		return 0
	}

	recovered := 0
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil || job.Status != JobStatusProcessing {
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Errorf("[MailQueue] sweep %s: %v", id, err)
			}
			q.release(ctx, id)
			continue
		}

		started := job.UpdatedAt
		if job.ProcessedAt != nil {
			started = *job.ProcessedAt
		}
		if now.Sub(started) <= maxAge {
			continue
		}

		log.Warnf("[MailQueue] job %s stuck for %s, requeueing", job.ID, now.Sub(started))
		job.Status = JobStatusPending
		job.UpdatedAt = now
		job.ErrorMsg = "recovered by sweeper"
		q.save(ctx, job)
		q.release(ctx, job.ID)
		if err := q.client.RPush(ctx, JobQueueKey, job.ID).Err(); err != nil {
			log.Errorf("[MailQueue] requeue %s: %v", job.ID, err)
			continue
		}
		recovered++
	}
	return recovered
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-q.stopCh
		cancel()
	}()

	for {
		select {
		case <-q.stopCh:
			return
		case <-q.workerPool:
		}

		job, err := q.dequeueJob(ctx)
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Errorf("[MailQueue] worker %d: %v", id, err)
				time.Sleep(time.Second)
			}
			q.workerPool <- struct{}{}
			continue
		}

		q.processJob(ctx, job)
		q.workerPool <- struct{}{}
	}
}

// EnqueueJob stores the job and pushes its id onto the pending list.
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
		pipe.LPush(ctx, JobQueueKey, job.ID)
		pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}

	log.Debugf("[MailQueue] queued %s job %s", job.Type, job.ID)
	return job, nil
}

// dequeueJob claims the oldest pending id by moving it to the processing list.
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.release(ctx, id)
		return nil, fmt.Errorf("job %s has no data: %w", id, err)
	}
	return job, nil
}

func (q *Queue) processJob(ctx context.Context, job *Job) {
	defer q.release(ctx, job.ID)

	job.MarkAsProcessing()
	q.save(ctx, job)

	q.handlersMu.RLock()
	handler, ok := q.handlers[job.Type]
	q.handlersMu.RUnlock()

	var err error
	if ok {
		err = handler(ctx, job)
	} else {
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err == nil {
		job.MarkAsCompleted()
		q.bumpStat(ctx, JobStatusCompleted)
		if err := q.client.Del(ctx, JobKeyPrefix+job.ID).Err(); err != nil {
			log.Errorf("[MailQueue] delete %s: %v", job.ID, err)
		}
		q.outcome(job.Type, "completed")
		return
	}

	job.MarkAsFailed(err.Error())
	if !job.IsRetryable() {
		log.Errorf("[MailQueue] job %s gave up after %d attempts: %v", job.ID, job.RetryCount, err)
		q.save(ctx, job)
		q.bumpStat(ctx, JobStatusFailed)
		q.outcome(job.Type, "failed")
		return
	}

	log.Warnf("[MailQueue] job %s attempt %d/%d failed: %v", job.ID, job.RetryCount, job.MaxRetries, err)
	job.MarkAsRetrying()
	q.save(ctx, job)
	readyAt := time.Now().Add(q.retryDelay * time.Duration(job.RetryCount))
	if err := q.client.ZAdd(ctx, JobDelayedKey, redis.Z{Score: float64(readyAt.UnixMilli()), Member: job.ID}).Err(); err != nil {
		log.Errorf("[MailQueue] schedule retry for %s: %v", job.ID, err)
	}
	q.outcome(job.Type, "retrying")
}

func (q *Queue) outcome(jobType JobType, outcome string) {
	if q.OnOutcome != nil {
		q.OnOutcome(jobType, outcome)
	}
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[MailQueue] encode %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		log.Errorf("[MailQueue] save %s: %v", job.ID, err)
	}
}

func (q *Queue) release(ctx context.Context, id string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, id).Err(); err != nil {
		log.Errorf("[MailQueue] release %s: %v", id, err)
	}
}

func (q *Queue) bumpStat(ctx context.Context, status JobStatus) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), 1).Err(); err != nil {
		log.Errorf("[MailQueue] stats: %v", err)
	}
}

// GetJob loads a job by id. A missing job returns redis.Nil.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, JobKeyPrefix+id).Bytes()
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// Stats returns the lifetime counters per status.
func (q *Queue) Stats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}

	stats := make(map[JobStatus]int64, len(raw))
	for status, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			stats[JobStatus(status)] = n
		}
	}
	return stats, nil
}

// Depth reports the pending, delayed and processing counts.
func (q *Queue) Depth(ctx context.Context) (pending, delayed, processing int64, err error) {
	pipe := q.client.Pipeline()
	p := pipe.LLen(ctx, JobQueueKey)
	d := pipe.ZCard(ctx, JobDelayedKey)
	r := pipe.LLen(ctx, JobProcessingKey)
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, err
	}
	return p.Val(), d.Val(), r.Val(), nil
}
