package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies the kind of background work a job carries.
type JobType string

const (
	// JobTypeProvisionUser finishes account setup after a first login.
	JobTypeProvisionUser JobType = "user.provision"
	// JobTypeRecordLogin writes a login event to the activity log.
	JobTypeRecordLogin JobType = "login.recorded"
)

// Job is the unit of work exchanged between the API and the worker. The
// optional NotBefore/NotAfter window bounds when it may run: early jobs are
// held back, late ones are dropped.
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	NotBefore  *time.Time     `json:"not_before,omitempty"`
	NotAfter   *time.Time     `json:"not_after,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a job with an open time window and the default retry budget.
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
}

// ShouldProcess reports whether the job's time window is open right now.
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return j.NotAfter == nil || !now.After(*j.NotAfter)
}

// IsExpired reports whether the NotAfter deadline has passed.
func (j *Job) IsExpired() bool {
	return j.NotAfter != nil && time.Now().After(*j.NotAfter)
}

// CanRetry reports whether the retry budget still has room.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry consumes one retry from the budget.
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
