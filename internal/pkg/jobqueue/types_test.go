package jobqueue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	payload := EmailJobPayload{
		Kind:       EmailKindMagicLink,
		To:         "ada@example.org",
		Name:       "Ada",
		Link:       "https://app.example.org/auth/magic/tok",
		TTLMinutes: 15,
		UserID:     7,
	}

	job, err := newJob(JobTypeEmail, payload)
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobTypeEmail, job.Type)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, defaultMaxRetries, job.MaxRetries)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.FinishedAt)

	var decoded EmailJobPayload
	require.NoError(t, job.decodePayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewJob_UnencodablePayload(t *testing.T) {
	_, err := newJob(JobTypeEmail, make(chan int))
	assert.Error(t, err)
}

func TestJob_DecodePayload_MemberExport(t *testing.T) {
	job, err := newJob(JobTypeMemberExport, MemberExportJobPayload{ExportID: 42, RequestedByID: 3})
	require.NoError(t, err)

	var decoded MemberExportJobPayload
	require.NoError(t, job.decodePayload(&decoded))
	assert.Equal(t, uint(42), decoded.ExportID)
	assert.Equal(t, uint(3), decoded.RequestedByID)
}

func TestJob_JSONRoundTrip(t *testing.T) {
	job, err := newJob(JobTypeEmail, EmailJobPayload{Kind: EmailKindWelcome, To: "new@example.org"})
	require.NoError(t, err)
	job.markStarted()

	raw, err := json.Marshal(job)
	require.NoError(t, err)

	var restored Job
	require.NoError(t, json.Unmarshal(raw, &restored))

	assert.Equal(t, job.ID, restored.ID)
	assert.Equal(t, JobStatusProcessing, restored.Status)
	require.NotNil(t, restored.StartedAt)
	assert.JSONEq(t, string(job.Payload), string(restored.Payload))
}

func TestJob_Lifecycle(t *testing.T) {
	job, err := newJob(JobTypeEmail, EmailJobPayload{Kind: EmailKindWelcome})
	require.NoError(t, err)

	job.markStarted()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.StartedAt)

	job.markFailed("smtp timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "smtp timeout", job.LastError)
	assert.Equal(t, 1, job.Attempts)

	job.markQueuedForRetry()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.markDone()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.LastError)
	require.NotNil(t, job.FinishedAt)
	assert.False(t, job.FinishedAt.Before(*job.StartedAt))
}

func TestJob_CanRetry(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		attempts int
		max      int
		want     bool
	}{
		{"failed with attempts left", JobStatusFailed, 1, 3, true},
		{"failed on last attempt", JobStatusFailed, 3, 3, false},
		{"failed beyond max", JobStatusFailed, 4, 3, false},
		{"pending never retries", JobStatusPending, 0, 3, false},
		{"completed never retries", JobStatusCompleted, 1, 3, false},
		{"processing never retries", JobStatusProcessing, 1, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Status: tt.status, Attempts: tt.attempts, MaxRetries: tt.max}
			assert.Equal(t, tt.want, job.canRetry())
		})
	}
}

func TestJob_Timestamps(t *testing.T) {
	before := time.Now()
	job, err := newJob(JobTypeMemberExport, MemberExportJobPayload{ExportID: 1})
	require.NoError(t, err)

	assert.False(t, job.CreatedAt.Before(before))
	assert.Equal(t, job.CreatedAt, job.UpdatedAt)

	job.markFailed("boom")
	assert.False(t, job.UpdatedAt.Before(job.CreatedAt))
}
