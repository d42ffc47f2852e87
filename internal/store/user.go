package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/domain"
)

// UserFilter selects users by id and/or username. Set fields are ANDed;
// nil fields match everything.
type UserFilter struct {
	ID       *uuid.UUID
	Username *string
}

// Matches reports whether the given user satisfies the filter.
func (f UserFilter) Matches(user *domain.User) bool {
	if f.ID != nil && *f.ID != user.ID {
		return false
	}
	if f.Username != nil && *f.Username != user.Username {
		return false
	}
	return true
}

// UserUpdate carries a partial update for user records. ExternalData entries
// are merged into the existing map rather than replacing it.
type UserUpdate struct {
	ExternalData map[string]string
}

// Apply merges the update into the user.
func (u UserUpdate) Apply(user *domain.User) {
	if u.ExternalData != nil {
		if user.ExternalData == nil {
			user.ExternalData = map[string]string{}
		}
		for k, v := range u.ExternalData {
			user.ExternalData[k] = v
		}
	}
}

// UserStore defines the interface for user persistence.
type UserStore interface {
	// Create saves a new user to the store.
	// Returns ErrUsernameExists if the username is already taken.
	Create(ctx context.Context, user *domain.User) error

	// Get returns the first user matching the filter.
	// Returns ErrUserNotFound when nothing matches.
	Get(ctx context.Context, filter UserFilter) (*domain.User, error)

	// Query returns all users matching the filter.
	Query(ctx context.Context, filter UserFilter) ([]*domain.User, error)

	// Update applies the update to every user matching the filter and
	// returns the records after the update.
	Update(ctx context.Context, filter UserFilter, update UserUpdate) ([]*domain.User, error)
}
