package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// JobTypeCardSync identifies jobs that mirror a task onto a Trello card.
const JobTypeCardSync = "card_sync"

// Common errors
var (
	ErrNilSyncer      = errors.New("task syncer cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
	ErrEmptyTaskID    = errors.New("task ID cannot be empty")
	ErrEmptyUserID    = errors.New("user ID cannot be empty")
	ErrUnknownJobType = errors.New("unknown job type")
	ErrInvalidPayload = errors.New("invalid job payload")
)

// TaskSyncer performs the remote synchronization step for a single task.
// Implemented by the task service.
type TaskSyncer interface {
	SyncTask(ctx context.Context, taskID, userID uuid.UUID) error
}

// cardSyncPayload is the serialized job data. It carries only identifiers;
// the user's token is re-fetched at execution time so a token linked after
// submission is still picked up by a retry.
type cardSyncPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	UserID uuid.UUID `json:"user_id"`
}

// CardSyncJob implements Job for synchronizing one task onto Trello.
type CardSyncJob struct {
	id     uuid.UUID
	taskID uuid.UUID
	userID uuid.UUID
	syncer TaskSyncer
	logger *slog.Logger
}

// NewCardSyncJob creates a new card sync job for the given task and owner.
func NewCardSyncJob(taskID, userID uuid.UUID, syncer TaskSyncer, logger *slog.Logger) (*CardSyncJob, error) {
	if syncer == nil {
		return nil, ErrNilSyncer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}

	return &CardSyncJob{
		id:     uuid.New(),
		taskID: taskID,
		userID: userID,
		syncer: syncer,
		logger: logger.With("job_type", JobTypeCardSync, "task_id", taskID),
	}, nil
}

// ID returns the job's unique identifier
func (j *CardSyncJob) ID() uuid.UUID {
	return j.id
}

// Type returns the job type identifier
func (j *CardSyncJob) Type() string {
	return JobTypeCardSync
}

// TaskID returns the identifier of the task being synchronized.
func (j *CardSyncJob) TaskID() uuid.UUID {
	return j.taskID
}

// Payload returns the job data as a byte slice
func (j *CardSyncJob) Payload() []byte {
	data, err := json.Marshal(cardSyncPayload{TaskID: j.taskID, UserID: j.userID})
	if err != nil {
		j.logger.Error("failed to marshal job payload", "error", err)
		return []byte{}
	}
	return data
}

// Execute runs the synchronization step. Errors propagate to the runner's
// retry machinery.
func (j *CardSyncJob) Execute(ctx context.Context) error {
	j.logger.Info("starting card sync")

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job cancelled by context: %w", err)
	}

	if err := j.syncer.SyncTask(ctx, j.taskID, j.userID); err != nil {
		return fmt.Errorf("failed to sync task to trello: %w", err)
	}

	j.logger.Info("card sync completed")
	return nil
}

// CardSyncJobFactory rebuilds card sync jobs from persisted records so they
// stay executable across process restarts.
type CardSyncJobFactory struct {
	syncer TaskSyncer
	logger *slog.Logger
}

// NewCardSyncJobFactory creates a factory bound to the given syncer.
func NewCardSyncJobFactory(syncer TaskSyncer, logger *slog.Logger) (*CardSyncJobFactory, error) {
	if syncer == nil {
		return nil, ErrNilSyncer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	return &CardSyncJobFactory{syncer: syncer, logger: logger}, nil
}

// Rebuild implements JobFactory. The recovered job keeps its persisted ID so
// status updates target the original record.
func (f *CardSyncJobFactory) Rebuild(record Record) (Job, error) {
	if record.Type != JobTypeCardSync {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, record.Type)
	}

	var payload cardSyncPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	job, err := NewCardSyncJob(payload.TaskID, payload.UserID, f.syncer, f.logger)
	if err != nil {
		return nil, err
	}
	job.id = record.ID

	return job, nil
}
