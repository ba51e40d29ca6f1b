package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/MemberFox/MemberFox/internal/pkg/cache"
)

const (
	jobKeyPrefix  = "jobs:item:"
	pendingKey    = "jobs:pending"
	processingKey = "jobs:active"
	statsKey      = "jobs:stats"

	defaultMaxRetries = 3
	jobRetention      = 24 * time.Hour
	claimTimeout      = time.Second
	retryBackoff      = time.Minute
	sweepInterval     = time.Minute
	stuckJobAge       = 10 * time.Minute
)

// Queue is a Redis-backed work queue. Producers push job IDs onto a pending
// list, workers claim them into an active list with BRPOPLPUSH, and a sweeper
// returns entries whose worker died mid-job.
type Queue struct {
	client  *redis.Client
	workers int
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a queue backed by the shared Redis client.
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 3
	}
	return &Queue{
		client:  cache.GetClient(),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the workers and the stuck-job sweeper.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	log.Infof("[JobQueue] starting %d workers", q.workers)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.runWorker(i)
	}
	q.wg.Add(1)
	go q.runSweeper()
}

// Stop signals all workers and waits for them to finish their current job.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}
	q.running = false
	close(q.stopCh)
	q.wg.Wait()
	log.Info("[JobQueue] stopped")
}

// Enqueue stores a new job record and pushes its ID onto the pending list.
func (q *Queue) Enqueue(jobType JobType, payload any) (*Job, error) {
	job, err := newJob(jobType, payload)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	ctx := context.Background()
	pipe := q.client.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, raw, jobRetention)
	pipe.LPush(ctx, pendingKey, job.ID)
	pipe.HIncrBy(ctx, statsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}

	log.Infof("[JobQueue] enqueued %s job %s", jobType, job.ID)
	return job, nil
}

// Find loads a job record by ID. Returns redis.Nil when the record expired
// or never existed.
func (q *Queue) Find(ctx context.Context, id string) (*Job, error) {
	raw, err := q.client.Get(ctx, jobKeyPrefix+id).Result()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("corrupt job record %s: %w", id, err)
	}
	return &job, nil
}

// Depth returns the number of jobs waiting on the pending list.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, pendingKey).Result()
}

// InFlight returns the number of jobs currently claimed by workers.
func (q *Queue) InFlight(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, processingKey).Result()
}

// Stats returns the lifetime per-status counters.
func (q *Queue) Stats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, err
	}
	stats := make(map[JobStatus]int64, len(raw))
	for status, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		stats[JobStatus(status)] = n
	}
	return stats, nil
}

func (q *Queue) runWorker(id int) {
	defer q.wg.Done()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		job, err := q.claim(ctx)
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[JobQueue] worker %d claim: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		q.run(ctx, job)
	}
}

// claim blocks up to claimTimeout for the next pending job and moves its ID
// onto the active list. Returns redis.Nil when nothing arrived in time.
func (q *Queue) claim(ctx context.Context) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, pendingKey, processingKey, claimTimeout).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.Find(ctx, id)
	if err != nil {
		// without a record there is nothing to run
		q.client.LRem(ctx, processingKey, 1, id)
		return nil, fmt.Errorf("claimed job %s has no record: %w", id, err)
	}
	return job, nil
}

func (q *Queue) run(ctx context.Context, job *Job) {
	log.Infof("[JobQueue] job %s (%s) started", job.ID, job.Type)
	job.markStarted()
	q.save(ctx, job)

	if err := q.dispatch(ctx, job); err != nil {
		log.Errorf("[JobQueue] job %s failed: %v", job.ID, err)
		job.markFailed(err.Error())
		if job.canRetry() {
			job.markQueuedForRetry()
			q.save(ctx, job)
			q.scheduleRetry(job)
		} else {
			log.Errorf("[JobQueue] job %s gave up after %d attempts", job.ID, job.Attempts)
			q.save(ctx, job)
			q.bumpStat(ctx, JobStatusFailed, 1)
		}
	} else {
		job.markDone()
		q.bumpStat(ctx, JobStatusCompleted, 1)
		// finished records are not kept around
		if err := q.client.Del(ctx, jobKeyPrefix+job.ID).Err(); err != nil {
			log.Errorf("[JobQueue] delete finished job %s: %v", job.ID, err)
		}
		log.Infof("[JobQueue] job %s completed", job.ID)
	}

	q.client.LRem(ctx, processingKey, 1, job.ID)
}

func (q *Queue) dispatch(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeEmail:
		return q.processEmailJob(ctx, job)
	case JobTypeMemberExport:
		return q.processMemberExportJob(ctx, job)
	default:
		return fmt.Errorf("no processor for job type %q", job.Type)
	}
}

// scheduleRetry pushes the job back onto the pending list after a backoff
// that grows with each attempt.
func (q *Queue) scheduleRetry(job *Job) {
	delay := retryBackoff * time.Duration(job.Attempts)
	log.Infof("[JobQueue] job %s retries in %s (attempt %d/%d)", job.ID, delay, job.Attempts, job.MaxRetries)
	id := job.ID
	time.AfterFunc(delay, func() {
		if err := q.client.LPush(context.Background(), pendingKey, id).Err(); err != nil {
			log.Errorf("[JobQueue] requeue %s after backoff: %v", id, err)
		}
	})
}

func (q *Queue) save(ctx context.Context, job *Job) {
	raw, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] encode job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, jobKeyPrefix+job.ID, raw, jobRetention).Err(); err != nil {
		log.Errorf("[JobQueue] save job %s: %v", job.ID, err)
	}
}

func (q *Queue) bumpStat(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, statsKey, string(status), delta).Err(); err != nil {
		log.Errorf("[JobQueue] stats update: %v", err)
	}
}

func (q *Queue) runSweeper() {
	defer q.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if n := q.requeueStuck(ctx, stuckJobAge); n > 0 {
				log.Warnf("[JobQueue] requeued %d stuck jobs", n)
			}
		}
	}
}

// requeueStuck returns jobs that sat on the active list longer than maxAge
// to the pending list. Entries without a record are dropped.
func (q *Queue) requeueStuck(ctx context.Context, maxAge time.Duration) int {
	ids, err := q.client.LRange(ctx, processingKey, 0, -1).Result()
	if err != nil {
		log.Errorf("[JobQueue] sweeper: %v", err)
		return 0
	}

	requeued := 0
	now := time.Now()
	for _, id := range ids {
		job, err := q.Find(ctx, id)
		if err != nil {
			// record expired or is corrupt, nothing left to run
			q.client.LRem(ctx, processingKey, 1, id)
			continue
		}
		if job.Status != JobStatusProcessing {
			q.client.LRem(ctx, processingKey, 1, id)
			continue
		}

		since := job.UpdatedAt
		if job.StartedAt != nil && !job.StartedAt.IsZero() {
			since = *job.StartedAt
		}
		if now.Sub(since) <= maxAge {
			continue
		}

		job.Status = JobStatusPending
		job.LastError = "requeued by sweeper"
		job.UpdatedAt = now
		q.save(ctx, job)
		q.client.LRem(ctx, processingKey, 1, id)
		if err := q.client.RPush(ctx, pendingKey, id).Err(); err != nil {
			log.Errorf("[JobQueue] sweeper requeue %s: %v", id, err)
			continue
		}
		requeued++
	}
	return requeued
}
