// Package memory provides process-local store backends. They satisfy the
// same contracts as the PostgreSQL backends and are selected via
// configuration, mostly for local running and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/domain"
	"github.com/orbital-hq/taskboard-api/internal/store"
)

// TaskStore is an in-memory implementation of store.TaskStore.
// Safe for concurrent use.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
}

// Ensure TaskStore implements store.TaskStore
var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Create implements store.TaskStore.Create.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *task
	s.tasks[t.ID] = &t
	return nil
}

// Query implements store.TaskStore.Query.
func (s *TaskStore) Query(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.query(filter), nil
}

// Get implements store.TaskStore.Get.
func (s *TaskStore) Get(ctx context.Context, filter store.TaskFilter) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.query(filter)
	if len(matches) == 0 {
		return nil, store.ErrTaskNotFound
	}
	return matches[0], nil
}

// Update implements store.TaskStore.Update. Records are updated one at a
// time; there is no batch atomicity across matches.
func (s *TaskStore) Update(ctx context.Context, filter store.TaskFilter, update store.TaskUpdate) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated []*domain.Task
	for _, task := range s.tasks {
		if !filter.Matches(task) {
			continue
		}
		update.Apply(task)
		copied := *task
		updated = append(updated, &copied)
	}
	return updated, nil
}

// query returns copies of all matching tasks. Callers must hold the lock.
func (s *TaskStore) query(filter store.TaskFilter) []*domain.Task {
	var matches []*domain.Task
	for _, task := range s.tasks {
		if filter.Matches(task) {
			copied := *task
			matches = append(matches, &copied)
		}
	}
	return matches
}
