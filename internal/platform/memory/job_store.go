package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/worker"
)

// JobStore is an in-memory implementation of worker.JobStore.
// Safe for concurrent use. Jobs do not survive a process restart with this
// backend; durability requires the postgres backend.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]worker.Record
}

// Ensure JobStore implements worker.JobStore
var _ worker.JobStore = (*JobStore)(nil)

// NewJobStore creates an empty in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[uuid.UUID]worker.Record),
	}
}

// SaveJob implements worker.JobStore.SaveJob.
func (s *JobStore) SaveJob(ctx context.Context, job worker.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.jobs[job.ID()] = worker.Record{
		ID:        job.ID(),
		Type:      job.Type(),
		Payload:   job.Payload(),
		Status:    worker.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// UpdateJobStatus implements worker.JobStore.UpdateJobStatus.
// Unknown job IDs are a no-op.
func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status worker.JobStatus, errorMsg string, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.jobs[jobID]
	if !ok {
		return nil
	}

	record.Status = status
	record.ErrorMessage = errorMsg
	record.Attempts = attempts
	record.UpdatedAt = time.Now().UTC()
	s.jobs[jobID] = record
	return nil
}

// GetPendingJobs implements worker.JobStore.GetPendingJobs.
func (s *JobStore) GetPendingJobs(ctx context.Context) ([]worker.Record, error) {
	return s.byStatus(worker.JobStatusPending, 0), nil
}

// GetProcessingJobs implements worker.JobStore.GetProcessingJobs.
func (s *JobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]worker.Record, error) {
	return s.byStatus(worker.JobStatusProcessing, olderThan), nil
}

func (s *JobStore) byStatus(status worker.JobStatus, olderThan time.Duration) []worker.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-olderThan)

	var records []worker.Record
	for _, record := range s.jobs {
		if record.Status != status {
			continue
		}
		if olderThan > 0 && !record.UpdatedAt.Before(cutoff) {
			continue
		}
		records = append(records, record)
	}
	return records
}
