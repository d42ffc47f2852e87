// Package worker implements the durable background job queue that decouples
// task creation from Trello synchronization. Jobs are persisted before they
// are queued, redelivered after a restart, and retried a bounded number of
// times with a fixed interval between attempts (at-least-once delivery).
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a persisted job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a unit of background work to be processed.
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type returns the job type identifier
	Type() string

	// Payload returns the job data as a byte slice
	Payload() []byte

	// Execute runs the job logic
	Execute(ctx context.Context) error
}

// Record is the persisted form of a job, as stored and recovered through a
// JobStore. Recovered records are rebuilt into executable jobs by a
// JobFactory.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       JobStatus
	Attempts     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobStore defines the interface for persisting jobs.
type JobStore interface {
	// SaveJob persists a new job with pending status.
	SaveJob(ctx context.Context, job Job) error

	// UpdateJobStatus updates the status, attempt count and last error of a job.
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, errorMsg string, attempts int) error

	// GetPendingJobs retrieves all jobs with "pending" status.
	GetPendingJobs(ctx context.Context) ([]Record, error)

	// GetProcessingJobs retrieves jobs with "processing" status.
	// If olderThan is non-zero, only returns jobs that have been in this
	// state longer than the specified duration.
	GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]Record, error)
}

// JobFactory rebuilds an executable job from a recovered record.
// Implementations dispatch on Record.Type and re-attach the dependencies the
// job needs to run.
type JobFactory interface {
	Rebuild(record Record) (Job, error)
}
