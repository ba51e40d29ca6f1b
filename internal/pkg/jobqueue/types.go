package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType names the processor responsible for a job.
type JobType string

const (
	JobTypeEmail        JobType = "email"
	JobTypeMemberExport JobType = "member_export"
)

// Email kinds handled by the email processor
const (
	EmailKindMagicLink   = "magic_link"
	EmailKindWelcome     = "welcome"
	EmailKindEmailChange = "email_change"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job is the unit of work stored in Redis. The payload stays raw JSON until
// the processor for the job's type decodes it.
type Job struct {
	ID         string          `json:"id"`
	Type       JobType         `json:"type"`
	Status     JobStatus       `json:"status"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"max_retries"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

func newJob(jobType JobType, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", jobType, err)
	}
	now := time.Now()
	return &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    raw,
		MaxRetries: defaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (j *Job) decodePayload(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// canRetry reports whether a failed job has attempts left.
func (j *Job) canRetry() bool {
	return j.Status == JobStatusFailed && j.Attempts < j.MaxRetries
}

func (j *Job) markStarted() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
}

func (j *Job) markDone() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.FinishedAt = &now
	j.UpdatedAt = now
	j.LastError = ""
}

func (j *Job) markFailed(reason string) {
	j.Status = JobStatusFailed
	j.LastError = reason
	j.Attempts++
	j.UpdatedAt = time.Now()
}

func (j *Job) markQueuedForRetry() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// EmailJobPayload drives the email processor.
type EmailJobPayload struct {
	Kind       string `json:"kind"`
	To         string `json:"to"`
	Name       string `json:"name"`
	Link       string `json:"link"`        // magic/confirmation link, empty for plain mails
	TTLMinutes int    `json:"ttl_minutes"` // validity shown to the recipient
	UserID     uint   `json:"user_id"`
}

// MemberExportJobPayload drives the member export processor.
type MemberExportJobPayload struct {
	ExportID      uint `json:"export_id"`
	RequestedByID uint `json:"requested_by_id"`
}
