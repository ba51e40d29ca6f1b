//go:build integration
// +build integration

package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisQueue(t *testing.T) (*Queue, context.Context) {
	t.Helper()

	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	queue := NewQueue(1)
	queue.client = client
	resetJobQueueRedisWithClient(t, client)
	t.Cleanup(func() {
		resetJobQueueRedisWithClient(t, client)
	})
	return queue, context.Background()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestQueue_Enqueue(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	job, err := queue.Enqueue(JobTypeEmail, EmailJobPayload{
		Kind: EmailKindMagicLink,
		To:   "integration@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, JobTypeEmail, job.Type)

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, depth)

	stats, err := queue.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[JobStatusPending])
}

func TestQueue_Enqueue_RedisDown(t *testing.T) {
	queue := NewQueue(1)
	queue.client = redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:0",
		DialTimeout:  100 * time.Millisecond,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		PoolTimeout:  100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = queue.client.Close() })

	job, err := queue.Enqueue(JobTypeEmail, EmailJobPayload{Kind: EmailKindWelcome})
	assert.Error(t, err)
	assert.Nil(t, job)
}

func TestQueue_Find(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	enqueued, err := queue.Enqueue(JobTypeMemberExport, MemberExportJobPayload{ExportID: 9, RequestedByID: 2})
	require.NoError(t, err)

	found, err := queue.Find(ctx, enqueued.ID)
	require.NoError(t, err)
	assert.Equal(t, enqueued.ID, found.ID)
	assert.Equal(t, JobTypeMemberExport, found.Type)

	var payload MemberExportJobPayload
	require.NoError(t, found.decodePayload(&payload))
	assert.EqualValues(t, 9, payload.ExportID)

	_, err = queue.Find(ctx, "no-such-job")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestQueue_Claim(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	enqueued, err := queue.Enqueue(JobTypeEmail, EmailJobPayload{Kind: EmailKindWelcome, To: "claim@example.com"})
	require.NoError(t, err)

	claimed, err := queue.claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, enqueued.ID, claimed.ID)

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, depth)

	inFlight, err := queue.InFlight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inFlight)
}

func TestQueue_Claim_EmptyTimesOut(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	start := time.Now()
	_, err := queue.claim(ctx)
	assert.ErrorIs(t, err, redis.Nil)
	assert.GreaterOrEqual(t, time.Since(start), claimTimeout-50*time.Millisecond)
}

func TestQueue_Claim_DropsOrphanedID(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	// pending entry without a job record, as after record expiry
	require.NoError(t, queue.client.LPush(ctx, pendingKey, "orphan-id").Err())

	_, err := queue.claim(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, redis.Nil)

	inFlight, err := queue.InFlight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, inFlight, "orphaned id must not stay on the active list")
}

func TestQueue_Save(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	job, err := queue.Enqueue(JobTypeEmail, EmailJobPayload{Kind: EmailKindWelcome})
	require.NoError(t, err)

	job.markStarted()
	queue.save(ctx, job)

	stored, err := queue.Find(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusProcessing, stored.Status)
	require.NotNil(t, stored.StartedAt)
}

func TestQueue_Stats(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	for i := 0; i < 3; i++ {
		_, err := queue.Enqueue(JobTypeEmail, EmailJobPayload{Kind: EmailKindWelcome})
		require.NoError(t, err)
	}
	queue.bumpStat(ctx, JobStatusCompleted, 2)
	queue.bumpStat(ctx, JobStatusFailed, 1)

	stats, err := queue.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats[JobStatusPending])
	assert.EqualValues(t, 2, stats[JobStatusCompleted])
	assert.EqualValues(t, 1, stats[JobStatusFailed])
}

func TestQueue_RequeueStuck(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	job, err := queue.Enqueue(JobTypeEmail, EmailJobPayload{Kind: EmailKindWelcome})
	require.NoError(t, err)

	// simulate a worker that claimed the job and died long ago
	_, err = queue.claim(ctx)
	require.NoError(t, err)
	stale := time.Now().Add(-time.Hour)
	job.Status = JobStatusProcessing
	job.StartedAt = &stale
	queue.save(ctx, job)

	requeued := queue.requeueStuck(ctx, stuckJobAge)
	assert.Equal(t, 1, requeued)

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, depth)

	inFlight, err := queue.InFlight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, inFlight)

	restored, err := queue.Find(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, restored.Status)
	assert.Equal(t, "requeued by sweeper", restored.LastError)
}

func TestQueue_RequeueStuck_LeavesFreshJobs(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	job, err := queue.Enqueue(JobTypeEmail, EmailJobPayload{Kind: EmailKindWelcome})
	require.NoError(t, err)

	_, err = queue.claim(ctx)
	require.NoError(t, err)
	job.markStarted()
	queue.save(ctx, job)

	requeued := queue.requeueStuck(ctx, stuckJobAge)
	assert.Equal(t, 0, requeued)

	inFlight, err := queue.InFlight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inFlight)
}

func TestQueue_RequeueStuck_DropsExpiredRecords(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	require.NoError(t, queue.client.LPush(ctx, processingKey, "gone-id").Err())

	requeued := queue.requeueStuck(ctx, stuckJobAge)
	assert.Equal(t, 0, requeued)

	inFlight, err := queue.InFlight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, inFlight)
}

func TestQueue_StartStop(t *testing.T) {
	queue, _ := setupRedisQueue(t)

	queue.Start()
	assert.True(t, queue.running)

	// second Start must be a no-op
	queue.Start()

	done := make(chan struct{})
	go func() {
		queue.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not stop in time")
	}
	assert.False(t, queue.running)
}

func TestQueue_WorkerDrainsUnknownType(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	// a job type nothing dispatches: the worker must fail it, burn its
	// retries via the retrying state, and leave the active list empty
	job, err := queue.Enqueue(JobType("bogus"), EmailJobPayload{})
	require.NoError(t, err)

	queue.Start()
	t.Cleanup(queue.Stop)

	ok := waitFor(t, 3*time.Second, func() bool {
		stored, err := queue.Find(ctx, job.ID)
		if err != nil {
			return false
		}
		return stored.Status == JobStatusRetrying || stored.Status == JobStatusFailed
	})
	require.True(t, ok, "job was never picked up")

	stored, err := queue.Find(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
	assert.Contains(t, stored.LastError, "no processor")

	inFlightEmpty := waitFor(t, time.Second, func() bool {
		n, err := queue.InFlight(ctx)
		return err == nil && n == 0
	})
	assert.True(t, inFlightEmpty)
}

func TestManager_StartStop(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)

	m := &Manager{
		queue:  NewQueue(1),
		stopCh: make(chan struct{}),
	}
	m.queue.client = client
	resetJobQueueRedisWithClient(t, client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Start()
	}()
	wg.Wait()

	assert.True(t, m.IsRunning())

	m.Stop()
	assert.False(t, m.IsRunning())

	// restart after stop must work
	m.Start()
	assert.True(t, m.IsRunning())
	m.Stop()
	assert.False(t, m.IsRunning())
}
