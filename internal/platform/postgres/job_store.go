package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/store"
	"github.com/orbital-hq/taskboard-api/internal/worker"
)

// JobStore implements the worker.JobStore interface using PostgreSQL.
// It gives the job queue crash durability: jobs saved here are redelivered
// after a restart.
type JobStore struct {
	db store.DBTX
}

// Ensure JobStore implements worker.JobStore
var _ worker.JobStore = (*JobStore)(nil)

// NewJobStore creates a new PostgreSQL implementation of worker.JobStore.
func NewJobStore(db store.DBTX) *JobStore {
	return &JobStore{db: db}
}

// SaveJob implements worker.JobStore.SaveJob.
func (s *JobStore) SaveJob(ctx context.Context, job worker.Job) error {
	query := `
		INSERT INTO jobs (id, type, payload, status, attempts, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, '', $5, $5)
	`

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		job.ID(),
		job.Type(),
		job.Payload(),
		worker.JobStatusPending,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", mapError(err))
	}
	return nil
}

// UpdateJobStatus implements worker.JobStore.UpdateJobStatus.
// Unknown job IDs are a no-op.
func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status worker.JobStatus, errorMsg string, attempts int) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, attempts = $3, updated_at = $4
		WHERE id = $5
	`

	_, err := s.db.ExecContext(ctx, query,
		status,
		errorMsg,
		attempts,
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", mapError(err))
	}
	return nil
}

// GetPendingJobs implements worker.JobStore.GetPendingJobs.
func (s *JobStore) GetPendingJobs(ctx context.Context) ([]worker.Record, error) {
	return s.byStatus(ctx, worker.JobStatusPending, 0)
}

// GetProcessingJobs implements worker.JobStore.GetProcessingJobs.
func (s *JobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]worker.Record, error) {
	return s.byStatus(ctx, worker.JobStatusProcessing, olderThan)
}

func (s *JobStore) byStatus(ctx context.Context, status worker.JobStatus, olderThan time.Duration) ([]worker.Record, error) {
	var query string
	var args []any

	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, attempts, error_message, created_at, updated_at
			FROM jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, type, payload, status, attempts, error_message, created_at, updated_at
			FROM jobs
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []worker.Record
	for rows.Next() {
		var record worker.Record
		err := rows.Scan(
			&record.ID,
			&record.Type,
			&record.Payload,
			&record.Status,
			&record.Attempts,
			&record.ErrorMessage,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", mapError(err))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return records, nil
}
