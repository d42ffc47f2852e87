package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the synchronization state of a task.
type TaskStatus string

// Possible task status values. A task is created PENDING, moves to CREATED
// once its Trello card exists, or ends up ERROR after sync retries exhaust.
const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusCreated TaskStatus = "CREATED"
	TaskStatusError   TaskStatus = "ERROR"
)

// TaskCategory classifies tasks of type TASK.
type TaskCategory string

// Possible task category values
const (
	TaskCategoryMaintenance TaskCategory = "MAINTENANCE"
	TaskCategoryResearch    TaskCategory = "RESEARCH"
	TaskCategoryTest        TaskCategory = "TEST"
)

// TaskType determines which fields a task requires and which Trello side
// effects apply during synchronization.
type TaskType string

// Possible task type values
const (
	TaskTypeIssue TaskType = "ISSUE"
	TaskTypeBug   TaskType = "BUG"
	TaskTypeTask  TaskType = "TASK"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID   = errors.New("task user ID cannot be empty")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrInvalidTaskType   = errors.New("invalid task type")

	// ErrIssueFieldsMissing is returned when an ISSUE lacks a title or description.
	ErrIssueFieldsMissing = fmt.Errorf("%w: title and description are mandatory to create an issue", ErrValidation)

	// ErrBugDescriptionMissing is returned when a BUG lacks a description.
	ErrBugDescriptionMissing = fmt.Errorf("%w: the description is mandatory to create a bug", ErrValidation)

	// ErrTaskFieldsMissing is returned when a TASK lacks a title or category.
	ErrTaskFieldsMissing = fmt.Errorf("%w: title and category are mandatory to create a task", ErrValidation)

	// ErrInvalidTaskCategory is returned when a category value is not recognized.
	ErrInvalidTaskCategory = fmt.Errorf("%w: invalid task category", ErrValidation)
)

// Task represents a tracked unit of work submitted by a user. Each task is
// mirrored onto a Trello card by an asynchronous sync job; TrelloData holds
// the raw card payload once the mirror exists.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Category    TaskCategory    `json:"category,omitempty"`
	Type        TaskType        `json:"type"`
	Status      TaskStatus      `json:"status"`
	ReceivedAt  time.Time       `json:"received_at"`
	TrelloData  json.RawMessage `json:"trello_data,omitempty"`
	FailCount   int             `json:"fail_count"`
}

// NewTask creates a new Task owned by the given user. It generates the task
// ID, applies defaults (type ISSUE, status PENDING) and validates the
// type-specific field rules. Returns an error if validation fails; nothing
// should be persisted in that case.
func NewTask(userID uuid.UUID, title, description string, category TaskCategory, taskType TaskType) (*Task, error) {
	if taskType == "" {
		taskType = TaskTypeIssue
	}

	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Category:    category,
		Type:        taskType,
		Status:      TaskStatusPending,
		ReceivedAt:  time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the Task against the type-specific required-field rules:
// ISSUE needs a title and a description, BUG needs a description (the title
// is regenerated during sync), TASK needs a title and a category.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if t.Category != "" && !isValidTaskCategory(t.Category) {
		return ErrInvalidTaskCategory
	}

	switch t.Type {
	case TaskTypeIssue:
		if t.Title == "" || t.Description == "" {
			return ErrIssueFieldsMissing
		}
	case TaskTypeBug:
		if t.Description == "" {
			return ErrBugDescriptionMissing
		}
	case TaskTypeTask:
		if t.Title == "" || t.Category == "" {
			return ErrTaskFieldsMissing
		}
	default:
		return ErrInvalidTaskType
	}

	return nil
}

// ParseTaskStatus converts a string into a TaskStatus.
// Returns an error for unknown values.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !isValidTaskStatus(status) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskStatus, s)
	}
	return status, nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusCreated, TaskStatusError:
		return true
	default:
		return false
	}
}

// isValidTaskCategory checks if the given category is a valid TaskCategory.
func isValidTaskCategory(category TaskCategory) bool {
	switch category {
	case TaskCategoryMaintenance, TaskCategoryResearch, TaskCategoryTest:
		return true
	default:
		return false
	}
}
