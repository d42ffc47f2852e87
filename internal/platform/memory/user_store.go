package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/domain"
	"github.com/orbital-hq/taskboard-api/internal/store"
)

// UserStore is an in-memory implementation of store.UserStore.
// Safe for concurrent use.
type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

// Ensure UserStore implements store.UserStore
var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[uuid.UUID]*domain.User),
	}
}

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return store.ErrUsernameExists
		}
	}

	copied := copyUser(user)
	s.users[copied.ID] = copied
	return nil
}

// Get implements store.UserStore.Get.
func (s *UserStore) Get(ctx context.Context, filter store.UserFilter) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.query(filter)
	if len(matches) == 0 {
		return nil, store.ErrUserNotFound
	}
	return matches[0], nil
}

// Query implements store.UserStore.Query.
func (s *UserStore) Query(ctx context.Context, filter store.UserFilter) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.query(filter), nil
}

// Update implements store.UserStore.Update.
func (s *UserStore) Update(ctx context.Context, filter store.UserFilter, update store.UserUpdate) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated []*domain.User
	for _, user := range s.users {
		if !filter.Matches(user) {
			continue
		}
		update.Apply(user)
		updated = append(updated, copyUser(user))
	}
	return updated, nil
}

// query returns copies of all matching users. Callers must hold the lock.
func (s *UserStore) query(filter store.UserFilter) []*domain.User {
	var matches []*domain.User
	for _, user := range s.users {
		if filter.Matches(user) {
			matches = append(matches, copyUser(user))
		}
	}
	return matches
}

// copyUser deep-copies a user so callers cannot mutate stored state.
func copyUser(user *domain.User) *domain.User {
	copied := *user
	copied.ExternalData = make(map[string]string, len(user.ExternalData))
	for k, v := range user.ExternalData {
		copied.ExternalData[k] = v
	}
	return &copied
}
