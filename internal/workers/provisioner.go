package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"authlink/internal/database"
	"authlink/internal/models"
	"authlink/internal/queue"
)

const (
	baseRetryDelay = 10 * time.Second
	maxRetryDelay  = 5 * time.Minute
)

// Provisioner processes the jobs emitted after a completed handshake:
// first-time provisioning and per-login activity recording.
type Provisioner struct {
	users    database.UserRepositoryInterface
	activity database.LoginActivityRepositoryInterface
	jobQueue queue.JobQueue // For re-enqueueing jobs with delays
}

// NewProvisioner creates a new provisioner worker
func NewProvisioner(
	users database.UserRepositoryInterface,
	activity database.LoginActivityRepositoryInterface,
	jobQueue queue.JobQueue,
) *Provisioner {
	return &Provisioner{
		users:    users,
		activity: activity,
		jobQueue: jobQueue,
	}
}

// ProcessProvisionJob records the signup of a newly created user
func (p *Provisioner) ProcessProvisionJob(ctx context.Context, job *queue.Job) error {
	user, err := p.users.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := p.activity.Record(ctx, activityFromJob(job, models.LoginEventCreated)); err != nil {
		return fmt.Errorf("failed to record signup activity: %w", err)
	}

	// Mail delivery is not wired up yet; record the intent in the log
	log.Printf("Provisioned user %s via %s, welcome mail intent recorded", user.ID, metadataString(job, "provider"))
	return nil
}

// ProcessLoginJob appends a login activity row and bumps last-seen
func (p *Provisioner) ProcessLoginJob(ctx context.Context, job *queue.Job) error {
	user, err := p.users.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := p.activity.Record(ctx, activityFromJob(job, models.LoginEventLogin)); err != nil {
		return fmt.Errorf("failed to record login activity: %w", err)
	}

	// The activity row is the critical write; last-seen is advisory
	if err := p.users.UpdateLastSeen(ctx, user.ID, time.Now()); err != nil {
		log.Printf("Failed to update last seen for user %s: %v", user.ID, err)
	}

	log.Printf("Recorded login for user %s via %s", user.ID, metadataString(job, "provider"))
	return nil
}

// ProcessJob processes a job based on its type
func (p *Provisioner) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Expired jobs are dropped; the handshake they describe is stale
	if job.IsExpired() {
		log.Printf("Job %s expired (NotAfter: %v), skipping", job.ID, job.NotAfter)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack expired job: %v", ackErr)
		}
		return nil
	}

	// Early deliveries go back through the delayed exchange
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), re-enqueueing", job.ID, job.NotBefore)
		return p.requeueEarlyJob(ctx, msg, job)
	}

	switch job.Type {
	case queue.JobTypeProvisionUser:
		if err := p.ProcessProvisionJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "provision")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeRecordLogin:
		if err := p.ProcessLoginJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "login record")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// requeueEarlyJob pushes a not-yet-due job back through the delayed exchange
func (p *Provisioner) requeueEarlyJob(ctx context.Context, msg queue.MessageInterface, job *queue.Job) error {
	if p.jobQueue == nil {
		// Without queue access the only options are drop or spin; drop and log
		log.Printf("Warning: no queue access, dropping early job %s", job.ID)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack early job: %v", ackErr)
		}
		return nil
	}

	if ackErr := msg.Ack(); ackErr != nil {
		log.Printf("Failed to ack early job before re-enqueue: %v", ackErr)
	}
	if enqueueErr := p.jobQueue.Enqueue(ctx, job); enqueueErr != nil {
		log.Printf("Failed to re-enqueue early job %s: %v", job.ID, enqueueErr)
		return fmt.Errorf("failed to re-enqueue early job: %w", enqueueErr)
	}
	return nil
}

// handleJobError retries transient failures with a delay, then dead-letters
func (p *Provisioner) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error, jobType string) error {
	if job.CanRetry() && p.jobQueue != nil {
		retryDelay := retryDelayFor(job.RetryCount)
		notBefore := time.Now().Add(retryDelay)

		delayedJob := *job
		delayedJob.NotBefore = &notBefore
		delayedJob.IncrementRetry()

		// Ack the current message
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack %s job before re-enqueue: %v", jobType, ackErr)
		}

		// Re-enqueue with delay using NotBefore (the delayed exchange holds it)
		if enqueueErr := p.jobQueue.Enqueue(ctx, &delayedJob); enqueueErr != nil {
			log.Printf("Failed to re-enqueue %s job %s: %v", jobType, job.ID, enqueueErr)
			return fmt.Errorf("failed to re-enqueue after error: %w", err)
		}

		log.Printf("%s job %s failed (attempt %d/%d): %v, retrying at %v",
			jobType, job.ID, job.RetryCount+1, job.MaxRetries, err, notBefore)
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Retry budget exhausted or no queue access, send to DLQ
	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.RetryCount, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack %s job to DLQ: %v", jobType, nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// retryDelayFor doubles the delay per attempt, capped at maxRetryDelay
func retryDelayFor(retryCount int) time.Duration {
	delay := baseRetryDelay << uint(retryCount)
	if delay > maxRetryDelay || delay <= 0 {
		return maxRetryDelay
	}
	return delay
}

// activityFromJob builds the activity row from the job envelope
func activityFromJob(job *queue.Job, event models.LoginEvent) *models.LoginActivity {
	return &models.LoginActivity{
		UserID:     job.UserID,
		Provider:   metadataString(job, "provider"),
		Event:      event,
		ClientIP:   metadataString(job, "client_ip"),
		OccurredAt: job.CreatedAt,
	}
}

// metadataString reads a string metadata value, tolerating absence
func metadataString(job *queue.Job, key string) string {
	if job.Metadata == nil {
		return ""
	}
	v, _ := job.Metadata[key].(string)
	return v
}
