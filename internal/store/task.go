// Package store defines the persistence contracts shared by the in-memory
// and PostgreSQL backends. Implementations must behave identically so the
// backend can be selected at startup from configuration.
package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/domain"
)

// TaskFilter selects tasks by any combination of id, owner and status.
// Set fields are ANDed; nil fields match everything.
type TaskFilter struct {
	ID     *uuid.UUID
	UserID *uuid.UUID
	Status *domain.TaskStatus
}

// Matches reports whether the given task satisfies the filter.
func (f TaskFilter) Matches(task *domain.Task) bool {
	if f.ID != nil && *f.ID != task.ID {
		return false
	}
	if f.UserID != nil && *f.UserID != task.UserID {
		return false
	}
	if f.Status != nil && *f.Status != task.Status {
		return false
	}
	return true
}

// TaskUpdate carries a partial update: only non-nil fields are applied.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	TrelloData  json.RawMessage
	FailCount   *int
}

// Apply writes the non-nil fields of the update onto the task.
func (u TaskUpdate) Apply(task *domain.Task) {
	if u.Title != nil {
		task.Title = *u.Title
	}
	if u.Description != nil {
		task.Description = *u.Description
	}
	if u.Status != nil {
		task.Status = *u.Status
	}
	if u.TrelloData != nil {
		task.TrelloData = u.TrelloData
	}
	if u.FailCount != nil {
		task.FailCount = *u.FailCount
	}
}

// TaskStore defines the interface for task persistence. Both backends must
// satisfy it identically and be safe for concurrent use from request
// handlers and queue workers.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// Query returns all tasks matching the filter, in no guaranteed order.
	// Returns an empty slice when nothing matches.
	Query(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Get returns the first task matching the filter.
	// Returns ErrTaskNotFound when nothing matches.
	Get(ctx context.Context, filter TaskFilter) (*domain.Task, error)

	// Update applies the non-nil fields of the update to every task matching
	// the filter and returns the records after the update. Updates are
	// applied per record, not atomically as a batch.
	Update(ctx context.Context, filter TaskFilter, update TaskUpdate) ([]*domain.Task, error)
}
