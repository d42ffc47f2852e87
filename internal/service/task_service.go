package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/config"
	"github.com/orbital-hq/taskboard-api/internal/domain"
	"github.com/orbital-hq/taskboard-api/internal/platform/trello"
	"github.com/orbital-hq/taskboard-api/internal/store"
	"github.com/orbital-hq/taskboard-api/internal/worker"
)

// todoListName is the list all mirrored cards land in.
const todoListName = "To Do"

// bugLabelName is the label attached to cards mirrored from BUG tasks.
const bugLabelName = "BUG"

// CardProvisioner defines the Trello operations the task service needs to
// mirror a task onto a card. *trelloservice.Service satisfies it.
type CardProvisioner interface {
	UserToken(ctx context.Context, userID uuid.UUID) (string, error)
	GetOrCreateBoard(ctx context.Context, token, name string) (trello.Board, error)
	GetOrCreateList(ctx context.Context, token, boardID, name string) (trello.List, error)
	GetOrCreateLabel(ctx context.Context, token, boardID, name string) (trello.Label, error)
	BoardMembers(ctx context.Context, token, boardID string) ([]trello.Member, error)
	CreateCard(ctx context.Context, token string, params trello.CreateCardParams) (json.RawMessage, error)
}

// JobSubmitter defines the interface for enqueueing background jobs.
type JobSubmitter interface {
	// Submit persists the job and adds it to the processing queue.
	Submit(ctx context.Context, job worker.Job) error
}

// CreateTaskParams carries the user-supplied fields of a new task.
type CreateTaskParams struct {
	Title       string
	Description string
	Category    domain.TaskCategory
	Type        domain.TaskType
}

// TaskService provides task-related operations: intake, querying, and the
// asynchronous mirroring of tasks onto Trello cards. Its SyncTask method
// satisfies worker.TaskSyncer, so the service is both the producer and the
// executor of card sync jobs.
type TaskService struct {
	taskStore   store.TaskStore
	provisioner CardProvisioner
	submitter   JobSubmitter
	rnd         Randomizer
	trelloCfg   config.TrelloConfig
	logger      *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any required dependency is nil. The submitter is
// assigned later through SetSubmitter because the job runner needs the
// service as its syncer, which would otherwise be a construction cycle.
func NewTaskService(
	taskStore store.TaskStore,
	provisioner CardProvisioner,
	rnd Randomizer,
	trelloCfg config.TrelloConfig,
	logger *slog.Logger,
) (*TaskService, error) {
	if taskStore == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if provisioner == nil {
		return nil, errors.New("card provisioner cannot be nil")
	}
	if rnd == nil {
		return nil, errors.New("randomizer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		taskStore:   taskStore,
		provisioner: provisioner,
		rnd:         rnd,
		trelloCfg:   trelloCfg,
		logger:      logger.With("component", "task_service"),
	}, nil
}

// SetSubmitter wires the job submitter. Must be called before CreateTask.
func (s *TaskService) SetSubmitter(submitter JobSubmitter) {
	s.submitter = submitter
}

// CreateTask validates and persists a new task, then enqueues the card sync
// job that will mirror it onto Trello.
func (s *TaskService) CreateTask(
	ctx context.Context,
	userID uuid.UUID,
	params CreateTaskParams,
) (*domain.Task, error) {
	task, err := domain.NewTask(userID, params.Title, params.Description, params.Category, params.Type)
	if err != nil {
		return nil, err
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		s.logger.ErrorContext(ctx, "failed to save task",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("saving task: %w", err)
	}

	if s.submitter == nil {
		return nil, errors.New("job submitter not configured")
	}
	job, err := worker.NewCardSyncJob(task.ID, userID, s, s.logger)
	if err != nil {
		return nil, fmt.Errorf("building card sync job: %w", err)
	}
	if err := s.submitter.Submit(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue card sync job",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("enqueueing card sync job: %w", err)
	}

	s.logger.InfoContext(ctx, "task created and sync enqueued",
		slog.String("task_id", task.ID.String()),
		slog.String("type", string(task.Type)))
	return task, nil
}

// ListTasks returns the caller's tasks, optionally filtered by status.
func (s *TaskService) ListTasks(
	ctx context.Context,
	userID uuid.UUID,
	status *domain.TaskStatus,
) ([]*domain.Task, error) {
	filter := store.TaskFilter{UserID: &userID, Status: status}
	tasks, err := s.taskStore.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns the task with the given ID if the caller owns it,
// ErrTaskNotFound otherwise.
func (s *TaskService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.Get(ctx, store.TaskFilter{ID: &taskID, UserID: &userID})
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("fetching task: %w", err)
	}
	return task, nil
}

// SyncTask implements worker.TaskSyncer. It resolves the target board and
// list, derives the card fields from the task type, creates the card, and
// records the Trello response on the task.
func (s *TaskService) SyncTask(ctx context.Context, taskID, userID uuid.UUID) error {
	token, err := s.provisioner.UserToken(ctx, userID)
	if err != nil {
		return err
	}

	task, err := s.taskStore.Get(ctx, store.TaskFilter{ID: &taskID, UserID: &userID})
	if err != nil {
		if store.IsNotFoundError(err) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("fetching task for sync: %w", err)
	}

	board, err := s.provisioner.GetOrCreateBoard(ctx, token, s.trelloCfg.BoardName)
	if err != nil {
		return err
	}
	list, err := s.provisioner.GetOrCreateList(ctx, token, board.ID, todoListName)
	if err != nil {
		return err
	}

	params := trello.CreateCardParams{
		ListID:      list.ID,
		Name:        task.Title,
		Description: task.Description,
	}

	switch task.Type {
	case domain.TaskTypeBug:
		params.Name = s.bugTitle()
		label, err := s.provisioner.GetOrCreateLabel(ctx, token, board.ID, bugLabelName)
		if err != nil {
			return err
		}
		params.LabelIDs = []string{label.ID}

		members, err := s.provisioner.BoardMembers(ctx, token, board.ID)
		if err != nil {
			return err
		}
		if len(members) > 0 {
			member := members[s.rnd.Intn(len(members))]
			params.MemberIDs = []string{member.ID}
		}
	case domain.TaskTypeTask:
		label, err := s.provisioner.GetOrCreateLabel(ctx, token, board.ID, string(task.Category))
		if err != nil {
			return err
		}
		params.LabelIDs = []string{label.ID}
	}

	raw, err := s.provisioner.CreateCard(ctx, token, params)
	if err != nil {
		return err
	}

	status := domain.TaskStatusCreated
	update := store.TaskUpdate{Status: &status, TrelloData: raw}
	if task.Type == domain.TaskTypeBug {
		update.Title = &params.Name
	}
	updated, err := s.taskStore.Update(ctx, store.TaskFilter{ID: &taskID}, update)
	if err != nil {
		return fmt.Errorf("recording card on task: %w", err)
	}
	if len(updated) == 0 {
		return ErrTaskNotFound
	}

	s.logger.InfoContext(ctx, "task mirrored to trello",
		slog.String("task_id", taskID.String()),
		slog.String("board_id", board.ID),
		slog.String("card_name", params.Name))
	return nil
}

// RecordSyncFailure increments the task's failure counter after a failed
// sync attempt.
func (s *TaskService) RecordSyncFailure(ctx context.Context, taskID uuid.UUID) error {
	task, err := s.taskStore.Get(ctx, store.TaskFilter{ID: &taskID})
	if err != nil {
		if store.IsNotFoundError(err) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("fetching task for failure count: %w", err)
	}

	count := task.FailCount + 1
	if _, err := s.taskStore.Update(ctx, store.TaskFilter{ID: &taskID}, store.TaskUpdate{FailCount: &count}); err != nil {
		return fmt.Errorf("incrementing failure count: %w", err)
	}
	return nil
}

// MarkSyncExhausted sets the task to ERROR once sync retries run out.
func (s *TaskService) MarkSyncExhausted(ctx context.Context, taskID uuid.UUID) error {
	status := domain.TaskStatusError
	updated, err := s.taskStore.Update(ctx, store.TaskFilter{ID: &taskID}, store.TaskUpdate{Status: &status})
	if err != nil {
		return fmt.Errorf("marking task failed: %w", err)
	}
	if len(updated) == 0 {
		return ErrTaskNotFound
	}
	s.logger.Warn("task sync retries exhausted",
		slog.String("task_id", taskID.String()))
	return nil
}

// bugTitle generates a replacement title for mirrored bug cards in the form
// bug-<word>-<5 digit number>.
func (s *TaskService) bugTitle() string {
	return fmt.Sprintf("bug-%s-%05d", s.rnd.Word(), s.rnd.Intn(100000))
}
